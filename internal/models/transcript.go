package models

import (
	"time"

	"gorm.io/gorm"
)

// Transcript represents a generated transcript of an episode in one language.
// One row exists per (episode_id, language) pair; regeneration overwrites it.
type Transcript struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EpisodeID string    `gorm:"not null;uniqueIndex:idx_transcripts_episode_language" json:"episode_id"`
	Language  string    `gorm:"not null;uniqueIndex:idx_transcripts_episode_language" json:"language"`
	Content   string    `gorm:"type:text" json:"content"`
	Status    JobStatus `gorm:"default:'processing';index" json:"status"`
	Error     string    `json:"error,omitempty"`
	ViewCount int64     `gorm:"default:0" json:"view_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Transcript
func (Transcript) TableName() string {
	return "transcripts"
}
