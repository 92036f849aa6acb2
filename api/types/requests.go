package types

import "time"

// EpisodeMetadata carries caller-supplied episode details used when no
// feed URL is given or feed resolution fails.
type EpisodeMetadata struct {
	ShowTitle    string     `json:"showTitle"`
	EpisodeTitle string     `json:"episodeTitle"`
	DurationText string     `json:"durationText"`
	PublishDate  *time.Time `json:"publishDate"`
}

// GenerateRequest is the body for transcription and summarization requests.
type GenerateRequest struct {
	AudioURL       string `json:"audioUrl"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`

	// Transcript, when present, is stored directly instead of running
	// the transcription processor.
	Transcript string `json:"transcript"`

	FeedURL     string          `json:"feedUrl"`
	EpisodeGUID string          `json:"episodeGuid"`
	Metadata    EpisodeMetadata `json:"metadata"`

	// NoPersist streams the result without writing it to storage.
	NoPersist bool `json:"noPersist"`
}
