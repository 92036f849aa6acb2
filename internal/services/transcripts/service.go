package transcripts

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/podbrief/podbrief-api/internal/models"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

// viewCountTimeout bounds the detached counter update so a wedged database
// cannot leak goroutines.
const viewCountTimeout = 5 * time.Second

// Service implements the TranscriptService interface
type Service struct {
	repo Repository
}

// NewService creates a new transcript service
func NewService(repo Repository) TranscriptService {
	return &Service{repo: repo}
}

// GetTranscript retrieves a transcript by episode ID and language
func (s *Service) GetTranscript(ctx context.Context, episodeID, language string) (*models.Transcript, error) {
	transcript, err := s.repo.GetByEpisodeAndLanguage(ctx, episodeID, language)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.NotFound("transcript", episodeID+"/"+language)
		}
		return nil, appErr.DatabaseError("get transcript", err)
	}
	return transcript, nil
}

// UpsertTranscript atomically creates or replaces the transcript for
// (episode ID, language)
func (s *Service) UpsertTranscript(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return appErr.ValidationError("transcript", "cannot be nil")
	}
	if transcript.EpisodeID == "" {
		return appErr.MissingFieldError("episode_id")
	}
	if transcript.Language == "" {
		return appErr.MissingFieldError("language")
	}
	if !transcript.Status.Valid() {
		transcript.Status = models.JobStatusFinished
	}

	if err := s.repo.Upsert(ctx, transcript); err != nil {
		return appErr.DatabaseError("upsert transcript", err)
	}
	return nil
}

// MarkProcessing upserts a placeholder row in the processing state
func (s *Service) MarkProcessing(ctx context.Context, episodeID, language string) error {
	return s.UpsertTranscript(ctx, &models.Transcript{
		EpisodeID: episodeID,
		Language:  language,
		Status:    models.JobStatusProcessing,
	})
}

// MarkFailed upserts the row into the failed state with a reason
func (s *Service) MarkFailed(ctx context.Context, episodeID, language, reason string) error {
	return s.UpsertTranscript(ctx, &models.Transcript{
		EpisodeID: episodeID,
		Language:  language,
		Status:    models.JobStatusFailed,
		Error:     reason,
	})
}

// DeleteTranscript soft-deletes a transcript
func (s *Service) DeleteTranscript(ctx context.Context, episodeID, language string) error {
	if err := s.repo.Delete(ctx, episodeID, language); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("transcript", episodeID+"/"+language)
		}
		return appErr.DatabaseError("delete transcript", err)
	}
	return nil
}

// RecordView increments the view counter without blocking the caller
func (s *Service) RecordView(episodeID, language string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewCountTimeout)
		defer cancel()

		if err := s.repo.IncrementViewCount(ctx, episodeID, language); err != nil {
			log.Printf("[WARN] Failed to record transcript view for %s/%s: %v", episodeID, language, err)
		}
	}()
}
