package transcripts

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

// NewRepository creates a new transcript repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetByEpisodeAndLanguage retrieves a transcript row
func (r *repository) GetByEpisodeAndLanguage(ctx context.Context, episodeID, language string) (*models.Transcript, error) {
	var transcript models.Transcript

	result := r.db.WithContext(ctx).
		Where("episode_id = ? AND language = ?", episodeID, language).
		First(&transcript)
	if result.Error != nil {
		return nil, result.Error
	}

	return &transcript, nil
}

// Upsert inserts or replaces the row keyed by (episode_id, language).
// The conflict target matches the composite unique index so concurrent
// writers converge on a single row.
func (r *repository) Upsert(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "episode_id"}, {Name: "language"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "status", "error", "updated_at", "deleted_at",
		}),
	}).Create(transcript).Error
}

// Delete soft-deletes a transcript row
func (r *repository) Delete(ctx context.Context, episodeID, language string) error {
	result := r.db.WithContext(ctx).
		Where("episode_id = ? AND language = ?", episodeID, language).
		Delete(&models.Transcript{})
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
		Model(&models.Transcript{}).
		Where("episode_id = ? AND language = ?", episodeID, language).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}
