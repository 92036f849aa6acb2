package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/podbrief/podbrief-api/internal/models"
	"github.com/podbrief/podbrief-api/internal/services/poller"
	"github.com/podbrief/podbrief-api/internal/services/transcriber"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
	"github.com/podbrief/podbrief-api/pkg/segments"
)

// TranscriptionStatus reports the lifecycle state of the transcript row.
func (s *Service) TranscriptionStatus(ctx context.Context, episodeID, language string) (models.JobStatus, error) {
	transcript, err := s.transcripts.GetTranscript(ctx, episodeID, language)
	if err != nil {
		return "", err
	}
	return transcript.Status, nil
}

// TriggerTranscription starts transcript generation without waiting for it.
// Repeat triggers while a run is already in flight or the row is already
// processing are absorbed; a finished row is left untouched.
func (s *Service) TriggerTranscription(ctx context.Context, req Request) error {
	if req.EpisodeID == "" {
		return appErr.MissingFieldError("episode_id")
	}
	language := req.TargetLanguage

	existing, err := s.transcripts.GetTranscript(ctx, req.EpisodeID, language)
	if err != nil && !appErr.Is(err, appErr.ErrCodeNotFound) {
		return err
	}
	if existing != nil {
		switch existing.Status {
		case models.JobStatusFinished:
			return nil
		case models.JobStatusProcessing:
			log.Printf("[DEBUG] Transcription for %s/%s already processing, trigger absorbed", req.EpisodeID, language)
			return nil
		}
	}

	if req.Transcript != "" {
		return s.storeProvidedTranscript(ctx, req)
	}
	return s.startTranscription(ctx, req)
}

// EnsureTranscript returns the finished transcript content for the request,
// generating it first if necessary. It blocks up to the job timeout.
func (s *Service) EnsureTranscript(ctx context.Context, req Request) (string, error) {
	if req.EpisodeID == "" {
		return "", appErr.MissingFieldError("episode_id")
	}
	language := req.TargetLanguage

	existing, err := s.transcripts.GetTranscript(ctx, req.EpisodeID, language)
	if err != nil && !appErr.Is(err, appErr.ErrCodeNotFound) {
		return "", err
	}

	if existing != nil {
		switch existing.Status {
		case models.JobStatusFinished:
			return existing.Content, nil
		case models.JobStatusProcessing:
			return s.awaitTranscript(ctx, req.EpisodeID, language)
		}
		// A failed row falls through to regeneration.
	}

	if req.Transcript != "" {
		if err := s.storeProvidedTranscript(ctx, req); err != nil {
			return "", err
		}
		transcript, err := s.transcripts.GetTranscript(ctx, req.EpisodeID, language)
		if err != nil {
			return "", err
		}
		return transcript.Content, nil
	}

	if err := s.startTranscription(ctx, req); err != nil {
		return "", err
	}
	return s.awaitTranscript(ctx, req.EpisodeID, language)
}

// storeProvidedTranscript validates and persists a caller-supplied transcript.
func (s *Service) storeProvidedTranscript(ctx context.Context, req Request) error {
	// Stored raw; readers normalize on the way out.
	if _, err := segments.Normalize(req.Transcript); err != nil {
		return appErr.InvalidFormat(err.Error())
	}

	return s.transcripts.UpsertTranscript(ctx, &models.Transcript{
		EpisodeID: req.EpisodeID,
		Language:  req.TargetLanguage,
		Content:   req.Transcript,
		Status:    models.JobStatusFinished,
	})
}

// startTranscription claims the run, writes the processing placeholder, and
// hands the actual work to a detached runner so HTTP callers can disconnect.
func (s *Service) startTranscription(ctx context.Context, req Request) error {
	key := jobKey(req.EpisodeID, req.TargetLanguage)
	if !s.claim(key) {
		log.Printf("[DEBUG] Transcription %s already claimed, trigger absorbed", key)
		return nil
	}

	if err := s.transcripts.MarkProcessing(ctx, req.EpisodeID, req.TargetLanguage); err != nil {
		s.release(key)
		return err
	}

	go s.runTranscription(req)
	return nil
}

// runTranscription drives one external transcription task to completion and
// records the outcome. It owns its own context: the caller that started the
// run may be long gone before the processor finishes.
func (s *Service) runTranscription(req Request) {
	key := jobKey(req.EpisodeID, req.TargetLanguage)
	defer s.release(key)

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	taskID, err := s.transcriber.Start(ctx, transcriber.StartRequest{
		EpisodeID:      req.EpisodeID,
		AudioURL:       req.AudioURL,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		s.failTranscription(req, "starting transcription: "+err.Error())
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.transcriber.Status(ctx, taskID)
		if err != nil {
			s.failTranscription(req, "polling transcription: "+err.Error())
			return
		}

		switch status.Status {
		case transcriber.TaskStatusFinished:
			result, err := s.transcriber.Result(ctx, taskID)
			if err != nil {
				s.failTranscription(req, "fetching transcript: "+err.Error())
				return
			}
			s.finishTranscription(req, result.Transcript)
			return
		case transcriber.TaskStatusFailed:
			s.failTranscription(req, status.Error)
			return
		}

		select {
		case <-ctx.Done():
			s.failTranscription(req, "transcription timed out after "+s.jobTimeout.String())
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) finishTranscription(req Request, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.transcripts.UpsertTranscript(ctx, &models.Transcript{
		EpisodeID: req.EpisodeID,
		Language:  req.TargetLanguage,
		Content:   content,
		Status:    models.JobStatusFinished,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to persist transcript for %s/%s: %v", req.EpisodeID, req.TargetLanguage, err)
		return
	}
	log.Printf("[DEBUG] Transcript finished for %s/%s (%d bytes)", req.EpisodeID, req.TargetLanguage, len(content))
}

func (s *Service) failTranscription(req Request, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("[ERROR] Transcription failed for %s/%s: %s", req.EpisodeID, req.TargetLanguage, reason)
	if err := s.transcripts.MarkFailed(ctx, req.EpisodeID, req.TargetLanguage, reason); err != nil {
		log.Printf("[ERROR] Failed to record transcription failure for %s/%s: %v", req.EpisodeID, req.TargetLanguage, err)
	}
}

// awaitTranscript polls the transcript row until it reaches a terminal state.
func (s *Service) awaitTranscript(ctx context.Context, episodeID, language string) (string, error) {
	key := jobKey(episodeID, language)
	return s.poller.AwaitCompletion(ctx, "transcript "+key, func(ctx context.Context) (poller.Snapshot, bool, error) {
		transcript, err := s.transcripts.GetTranscript(ctx, episodeID, language)
		if err != nil {
			if appErr.Is(err, appErr.ErrCodeNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
				return poller.Snapshot{}, false, nil
			}
			return poller.Snapshot{}, false, err
		}
		return poller.Snapshot{
			Status:  transcript.Status,
			Content: transcript.Content,
			Error:   transcript.Error,
		}, true, nil
	})
}
