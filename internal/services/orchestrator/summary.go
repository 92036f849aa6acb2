package orchestrator

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/podbrief/podbrief-api/internal/models"
	"github.com/podbrief/podbrief-api/internal/services/episodes"
	"github.com/podbrief/podbrief-api/internal/services/poller"
	"github.com/podbrief/podbrief-api/internal/services/summarizer"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
	"github.com/podbrief/podbrief-api/pkg/relay"
	"github.com/podbrief/podbrief-api/pkg/segments"
)

// Summarize returns a stream of summary chunks for the episode. Cached
// summaries replay through the same channel shape so downstream gating
// applies uniformly. New generations are persisted once the stream ends,
// unless the request opts out.
func (s *Service) Summarize(ctx context.Context, req Request) (<-chan relay.Chunk, error) {
	if req.EpisodeID == "" {
		return nil, appErr.MissingFieldError("episode_id")
	}
	if req.TargetLanguage == "" {
		return nil, appErr.MissingFieldError("target_language")
	}
	language := req.TargetLanguage

	existing, err := s.summaries.GetSummary(ctx, req.EpisodeID, language)
	if err != nil && !appErr.Is(err, appErr.ErrCodeNotFound) {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case models.JobStatusFinished:
			s.summaries.RecordView(req.EpisodeID, language)
			return replay(existing.Content), nil
		case models.JobStatusProcessing:
			content, err := s.awaitSummary(ctx, req.EpisodeID, language)
			if err != nil {
				return nil, err
			}
			return replay(content), nil
		}
		// Failed rows are regenerated below.
	}

	rawTranscript, err := s.EnsureTranscript(ctx, req)
	if err != nil {
		return nil, err
	}

	buckets, err := segments.Normalize(rawTranscript)
	if err != nil {
		return nil, appErr.InvalidFormat("stored transcript: " + err.Error())
	}
	plainText := segments.PlainText(buckets)

	meta := s.resolveMetadata(ctx, req)

	if !req.NoPersist {
		err := s.summaries.MarkProcessing(ctx, &models.Summary{
			EpisodeID:       req.EpisodeID,
			Language:        language,
			ShowTitle:       meta.ShowTitle,
			EpisodeTitle:    meta.EpisodeTitle,
			EpisodeDuration: meta.DurationText,
			PublishDate:     meta.PublishDate,
		})
		if err != nil {
			return nil, err
		}
	}

	// The stream runs on its own context so a client disconnect does not
	// kill generation mid-way; the tee keeps draining and persists the
	// complete text.
	streamCtx, cancelStream := context.WithTimeout(context.Background(), s.jobTimeout)
	upstream, err := s.summarizer.StreamSummary(streamCtx, summarizer.Request{
		Transcript:   plainText,
		Language:     language,
		ShowTitle:    meta.ShowTitle,
		EpisodeTitle: meta.EpisodeTitle,
	})
	if err != nil {
		cancelStream()
		if !req.NoPersist {
			s.recordSummaryFailure(req.EpisodeID, language, err.Error())
		}
		return nil, err
	}

	return s.teeSummary(ctx, req, meta, upstream, cancelStream), nil
}

// GetSummary returns the stored summary row, counting the read as a view
// when the row is finished.
func (s *Service) GetSummary(ctx context.Context, episodeID, language string) (*models.Summary, error) {
	summary, err := s.summaries.GetSummary(ctx, episodeID, language)
	if err != nil {
		return nil, err
	}
	if summary.Status == models.JobStatusFinished {
		s.summaries.RecordView(episodeID, language)
	}
	return summary, nil
}

// GetTranscript returns the stored transcript normalized into minute
// buckets, counting the read as a view.
func (s *Service) GetTranscript(ctx context.Context, episodeID, language string) ([]segments.MinuteBucket, models.JobStatus, error) {
	transcript, err := s.transcripts.GetTranscript(ctx, episodeID, language)
	if err != nil {
		return nil, "", err
	}
	if transcript.Status != models.JobStatusFinished {
		return nil, transcript.Status, nil
	}

	buckets, err := segments.Normalize(transcript.Content)
	if err != nil {
		return nil, transcript.Status, appErr.InvalidFormat("stored transcript: " + err.Error())
	}

	s.transcripts.RecordView(episodeID, language)
	return buckets, transcript.Status, nil
}

// teeSummary forwards upstream chunks while accumulating the full text,
// then records the terminal state once the stream ends.
func (s *Service) teeSummary(ctx context.Context, req Request, meta metadata, upstream <-chan relay.Chunk, cancelStream context.CancelFunc) <-chan relay.Chunk {
	out := make(chan relay.Chunk)

	go func() {
		defer close(out)
		defer cancelStream()

		var full strings.Builder
		for chunk := range upstream {
			if chunk.Err != nil {
				if !req.NoPersist {
					s.recordSummaryFailure(req.EpisodeID, req.TargetLanguage, chunk.Err.Error())
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
				}
				return
			}

			full.WriteString(chunk.Text)
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Client gone; keep draining so the summary still persists.
				s.drainAndPersist(req, meta, &full, upstream)
				return
			}
		}

		s.persistSummary(req, meta, full.String())
	}()

	return out
}

// drainAndPersist consumes the remaining upstream after the client
// disconnected, then persists whatever completed.
func (s *Service) drainAndPersist(req Request, meta metadata, full *strings.Builder, upstream <-chan relay.Chunk) {
	for chunk := range upstream {
		if chunk.Err != nil {
			if !req.NoPersist {
				s.recordSummaryFailure(req.EpisodeID, req.TargetLanguage, chunk.Err.Error())
			}
			return
		}
		full.WriteString(chunk.Text)
	}
	s.persistSummary(req, meta, full.String())
}

func (s *Service) persistSummary(req Request, meta metadata, content string) {
	if req.NoPersist {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.summaries.UpsertSummary(ctx, &models.Summary{
		EpisodeID:       req.EpisodeID,
		Language:        req.TargetLanguage,
		Content:         content,
		Status:          models.JobStatusFinished,
		ShowTitle:       meta.ShowTitle,
		EpisodeTitle:    meta.EpisodeTitle,
		EpisodeDuration: meta.DurationText,
		PublishDate:     meta.PublishDate,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to persist summary for %s/%s: %v", req.EpisodeID, req.TargetLanguage, err)
	}
}

func (s *Service) recordSummaryFailure(episodeID, language, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.summaries.MarkFailed(ctx, episodeID, language, reason); err != nil {
		log.Printf("[ERROR] Failed to record summary failure for %s/%s: %v", episodeID, language, err)
	}
}

// metadata is the resolved episode description for denormalization.
type metadata struct {
	ShowTitle    string
	EpisodeTitle string
	DurationText string
	PublishDate  *time.Time
}

// resolveMetadata prefers the feed, falls back to request-supplied fields.
func (s *Service) resolveMetadata(ctx context.Context, req Request) metadata {
	manual := metadata{
		ShowTitle:    req.ShowTitle,
		EpisodeTitle: req.EpisodeTitle,
		DurationText: req.DurationText,
		PublishDate:  episodes.SanitizePublishDate(req.PublishDate),
	}

	if req.FeedURL == "" || s.resolver == nil {
		return manual
	}

	resolved, err := s.resolver.Resolve(ctx, req.FeedURL, req.guid())
	if err != nil {
		log.Printf("[WARN] Feed metadata resolution failed for %s: %v", req.EpisodeID, err)
		return manual
	}

	meta := metadata{
		ShowTitle:    resolved.ShowTitle,
		EpisodeTitle: resolved.EpisodeTitle,
		DurationText: resolved.DurationText,
		PublishDate:  resolved.PublishDate,
	}
	if meta.ShowTitle == "" {
		meta.ShowTitle = manual.ShowTitle
	}
	if meta.EpisodeTitle == "" {
		meta.EpisodeTitle = manual.EpisodeTitle
	}
	if meta.DurationText == "" {
		meta.DurationText = manual.DurationText
	}
	if meta.PublishDate == nil {
		meta.PublishDate = manual.PublishDate
	}
	return meta
}

// awaitSummary polls the summary row until it reaches a terminal state.
func (s *Service) awaitSummary(ctx context.Context, episodeID, language string) (string, error) {
	key := jobKey(episodeID, language)
	return s.poller.AwaitCompletion(ctx, "summary "+key, func(ctx context.Context) (poller.Snapshot, bool, error) {
		summary, err := s.summaries.GetSummary(ctx, episodeID, language)
		if err != nil {
			if appErr.Is(err, appErr.ErrCodeNotFound) {
				return poller.Snapshot{}, false, nil
			}
			return poller.Snapshot{}, false, err
		}
		return poller.Snapshot{
			Status:  summary.Status,
			Content: summary.Content,
			Error:   summary.Error,
		}, true, nil
	})
}

// replay wraps already-generated text as a single-chunk stream.
func replay(content string) <-chan relay.Chunk {
	ch := make(chan relay.Chunk, 1)
	ch <- relay.Chunk{Text: content}
	close(ch)
	return ch
}
