package summaries

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/podbrief/podbrief-api/internal/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new summary repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetByEpisodeAndLanguage retrieves a summary row
func (r *repository) GetByEpisodeAndLanguage(ctx context.Context, episodeID, language string) (*models.Summary, error) {
	var summary models.Summary

	result := r.db.WithContext(ctx).
		Where("episode_id = ? AND language = ?", episodeID, language).
		First(&summary)
	if result.Error != nil {
		return nil, result.Error
	}

	return &summary, nil
}

// Upsert inserts or replaces the row keyed by (episode_id, language).
// View counts survive the update. Metadata columns are only replaced when
// the incoming row carries metadata; failure writes arrive without it and
// must not blank out what was captured when processing started.
func (r *repository) Upsert(ctx context.Context, summary *models.Summary) error {
	if summary == nil {
		return errors.New("summary cannot be nil")
	}

	columns := []string{"content", "status", "error", "updated_at", "deleted_at"}
	if summary.ShowTitle != "" || summary.EpisodeTitle != "" ||
		summary.EpisodeDuration != "" || summary.PublishDate != nil {
		columns = append(columns, "show_title", "episode_title", "episode_duration", "publish_date")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "episode_id"}, {Name: "language"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(summary).Error
}

// Delete soft-deletes a summary row
func (r *repository) Delete(ctx context.Context, episodeID, language string) error {
	result := r.db.WithContext(ctx).
		Where("episode_id = ? AND language = ?", episodeID, language).
		Delete(&models.Summary{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// IncrementViewCount bumps the view counter by one
func (r *repository) IncrementViewCount(ctx context.Context, episodeID, language string) error {
	return r.db.WithContext(ctx).
		Model(&models.Summary{}).
		Where("episode_id = ? AND language = ?", episodeID, language).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}
