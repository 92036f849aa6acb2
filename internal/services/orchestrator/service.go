// Package orchestrator coordinates the full generation pipeline: it ensures
// an episode has a transcript, drives the external transcription processor,
// and streams AI summaries while persisting the finished text.
package orchestrator

import (
	"sync"
	"time"

	"github.com/podbrief/podbrief-api/internal/services/episodes"
	"github.com/podbrief/podbrief-api/internal/services/poller"
	"github.com/podbrief/podbrief-api/internal/services/summaries"
	"github.com/podbrief/podbrief-api/internal/services/summarizer"
	"github.com/podbrief/podbrief-api/internal/services/transcriber"
	"github.com/podbrief/podbrief-api/internal/services/transcripts"
)

// Request carries everything a generation run may need. EpisodeID and
// TargetLanguage identify the output row; the rest is optional input.
type Request struct {
	EpisodeID      string
	AudioURL       string
	SourceLanguage string
	TargetLanguage string

	// Transcript, when set, is used directly instead of running the
	// external processor.
	Transcript string

	// Feed resolution inputs. EpisodeGUID defaults to EpisodeID.
	FeedURL     string
	EpisodeGUID string

	// Manual metadata, used when no feed is given or resolution fails.
	ShowTitle    string
	EpisodeTitle string
	DurationText string
	PublishDate  *time.Time

	// NoPersist streams the summary without writing it to storage.
	NoPersist bool
}

func (r Request) guid() string {
	if r.EpisodeGUID != "" {
		return r.EpisodeGUID
	}
	return r.EpisodeID
}

// Options tune the orchestrator's polling behavior.
type Options struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// Service implements the generation pipeline
type Service struct {
	transcripts transcripts.TranscriptService
	summaries   summaries.SummaryService
	transcriber transcriber.Transcriber
	summarizer  summarizer.Summarizer
	resolver    episodes.Resolver
	poller      *poller.Poller

	pollInterval time.Duration
	jobTimeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates the orchestrator service
func New(
	transcriptSvc transcripts.TranscriptService,
	summarySvc summaries.SummaryService,
	transcriberClient transcriber.Transcriber,
	summarizerSvc summarizer.Summarizer,
	resolver episodes.Resolver,
	opts Options,
) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = poller.DefaultInterval
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = poller.DefaultTimeout
	}

	return &Service{
		transcripts:  transcriptSvc,
		summaries:    summarySvc,
		transcriber:  transcriberClient,
		summarizer:   summarizerSvc,
		resolver:     resolver,
		poller:       poller.New(opts.PollInterval, opts.JobTimeout),
		pollInterval: opts.PollInterval,
		jobTimeout:   opts.JobTimeout,
		inFlight:     make(map[string]struct{}),
	}
}

// jobKey identifies an in-flight transcription run.
func jobKey(episodeID, language string) string {
	return episodeID + "/" + language
}

// claim marks a transcription run as in flight. Returns false when another
// goroutine already owns it.
func (s *Service) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[key]; ok {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}
