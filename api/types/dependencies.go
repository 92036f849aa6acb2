package types

import (
	"github.com/podbrief/podbrief-api/internal/database"
	"github.com/podbrief/podbrief-api/internal/services/orchestrator"
	"github.com/podbrief/podbrief-api/internal/services/summaries"
	"github.com/podbrief/podbrief-api/internal/services/transcripts"
	"github.com/podbrief/podbrief-api/pkg/config"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                *database.DB
	TranscriptService transcripts.TranscriptService
	SummaryService    summaries.SummaryService
	Orchestrator      *orchestrator.Service
	Gating            config.GatingConfig
}
