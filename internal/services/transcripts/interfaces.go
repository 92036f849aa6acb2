package transcripts

import (
	"context"

	"github.com/podbrief/podbrief-api/internal/models"
)

// TranscriptService defines the interface for transcript persistence operations
type TranscriptService interface {
	// GetTranscript retrieves a transcript by episode ID and language
	GetTranscript(ctx context.Context, episodeID, language string) (*models.Transcript, error)

	// UpsertTranscript atomically creates or replaces the transcript for
	// (episode ID, language)
	UpsertTranscript(ctx context.Context, transcript *models.Transcript) error

	// MarkProcessing upserts a placeholder row in the processing state
	MarkProcessing(ctx context.Context, episodeID, language string) error

	// MarkFailed upserts the row into the failed state with a reason
	MarkFailed(ctx context.Context, episodeID, language, reason string) error

	// DeleteTranscript soft-deletes a transcript
	DeleteTranscript(ctx context.Context, episodeID, language string) error

	// RecordView increments the view counter without blocking the caller.
	// Failures are logged and swallowed.
	RecordView(episodeID, language string)
}

// Repository defines the interface for transcript data persistence
type Repository interface {
	// GetByEpisodeAndLanguage retrieves a transcript row
	GetByEpisodeAndLanguage(ctx context.Context, episodeID, language string) (*models.Transcript, error)

	// Upsert inserts or replaces the row keyed by (episode_id, language)
	Upsert(ctx context.Context, transcript *models.Transcript) error

	// Delete soft-deletes a transcript row
	Delete(ctx context.Context, episodeID, language string) error

	// IncrementViewCount bumps the view counter by one
	IncrementViewCount(ctx context.Context, episodeID, language string) error
}
