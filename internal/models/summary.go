package models

import (
	"time"

	"gorm.io/gorm"
)

// Summary represents an AI-generated summary of an episode in one language.
// Episode metadata is denormalized here so reads never need a feed lookup.
type Summary struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EpisodeID string    `gorm:"not null;uniqueIndex:idx_summaries_episode_language" json:"episode_id"`
	Language  string    `gorm:"not null;uniqueIndex:idx_summaries_episode_language" json:"language"`
	Content   string    `gorm:"type:text" json:"content"`
	Status    JobStatus `gorm:"default:'processing';index" json:"status"`
	Error     string    `json:"error,omitempty"`
	ViewCount int64     `gorm:"default:0" json:"view_count"`

	// Denormalized episode metadata
	ShowTitle       string     `json:"show_title"`
	EpisodeTitle    string     `json:"episode_title"`
	EpisodeDuration string     `json:"episode_duration"`
	PublishDate     *time.Time `json:"publish_date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Summary
func (Summary) TableName() string {
	return "summaries"
}
