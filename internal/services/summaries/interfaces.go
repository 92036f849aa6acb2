package summaries

import (
	"context"

	"github.com/podbrief/podbrief-api/internal/models"
)

// SummaryService defines the interface for summary persistence operations
type SummaryService interface {
	// GetSummary retrieves a summary by episode ID and language
	GetSummary(ctx context.Context, episodeID, language string) (*models.Summary, error)

	// UpsertSummary atomically creates or replaces the summary for
	// (episode ID, language)
	UpsertSummary(ctx context.Context, summary *models.Summary) error

	// MarkProcessing upserts a placeholder row in the processing state,
	// carrying any already-known episode metadata
	MarkProcessing(ctx context.Context, summary *models.Summary) error

	// MarkFailed upserts the row into the failed state with a reason
	MarkFailed(ctx context.Context, episodeID, language, reason string) error

	// DeleteSummary soft-deletes a summary
	DeleteSummary(ctx context.Context, episodeID, language string) error

	// RecordView increments the view counter without blocking the caller.
	// Failures are logged and swallowed.
	RecordView(episodeID, language string)
}

// Repository defines the interface for summary data persistence
type Repository interface {
	// GetByEpisodeAndLanguage retrieves a summary row
	GetByEpisodeAndLanguage(ctx context.Context, episodeID, language string) (*models.Summary, error)

	// Upsert inserts or replaces the row keyed by (episode_id, language)
	Upsert(ctx context.Context, summary *models.Summary) error

	// Delete soft-deletes a summary row
	Delete(ctx context.Context, episodeID, language string) error

	// IncrementViewCount bumps the view counter by one
	IncrementViewCount(ctx context.Context, episodeID, language string) error
}
