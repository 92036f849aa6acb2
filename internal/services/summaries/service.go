package summaries

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/podbrief/podbrief-api/internal/models"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

const viewCountTimeout = 5 * time.Second

// Service implements the SummaryService interface
type Service struct {
	repo Repository
}

// NewService creates a new summary service
func NewService(repo Repository) SummaryService {
	return &Service{repo: repo}
}

// GetSummary retrieves a summary by episode ID and language
func (s *Service) GetSummary(ctx context.Context, episodeID, language string) (*models.Summary, error) {
	summary, err := s.repo.GetByEpisodeAndLanguage(ctx, episodeID, language)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.NotFound("summary", episodeID+"/"+language)
		}
		return nil, appErr.DatabaseError("get summary", err)
	}
	return summary, nil
}

// UpsertSummary atomically creates or replaces the summary for
// (episode ID, language)
func (s *Service) UpsertSummary(ctx context.Context, summary *models.Summary) error {
	if summary == nil {
		return appErr.ValidationError("summary", "cannot be nil")
	}
	if summary.EpisodeID == "" {
		return appErr.MissingFieldError("episode_id")
	}
	if summary.Language == "" {
		return appErr.MissingFieldError("language")
	}
	if !summary.Status.Valid() {
		summary.Status = models.JobStatusFinished
	}

	if err := s.repo.Upsert(ctx, summary); err != nil {
		return appErr.DatabaseError("upsert summary", err)
	}
	return nil
}

// MarkProcessing upserts a placeholder row in the processing state
func (s *Service) MarkProcessing(ctx context.Context, summary *models.Summary) error {
	if summary == nil {
		return appErr.ValidationError("summary", "cannot be nil")
	}
	summary.Status = models.JobStatusProcessing
	summary.Content = ""
	summary.Error = ""
	return s.UpsertSummary(ctx, summary)
}

// MarkFailed upserts the row into the failed state with a reason
func (s *Service) MarkFailed(ctx context.Context, episodeID, language, reason string) error {
	return s.UpsertSummary(ctx, &models.Summary{
		EpisodeID: episodeID,
		Language:  language,
		Status:    models.JobStatusFailed,
		Error:     reason,
	})
}

// DeleteSummary soft-deletes a summary
func (s *Service) DeleteSummary(ctx context.Context, episodeID, language string) error {
	if err := s.repo.Delete(ctx, episodeID, language); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("summary", episodeID+"/"+language)
		}
		return appErr.DatabaseError("delete summary", err)
	}
	return nil
}

// RecordView increments the view counter without blocking the caller
func (s *Service) RecordView(episodeID, language string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewCountTimeout)
		defer cancel()

		if err := s.repo.IncrementViewCount(ctx, episodeID, language); err != nil {
			log.Printf("[WARN] Failed to record summary view for %s/%s: %v", episodeID, language, err)
		}
	}()
}
