// Package transcriber talks to the external transcription processor that
// converts episode audio into diarized transcript JSON. Jobs are asynchronous:
// a start call returns a task ID which is then polled for status and result.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

// Task status values reported by the processor.
const (
	TaskStatusQueued     = "queued"
	TaskStatusProcessing = "processing"
	TaskStatusFinished   = "finished"
	TaskStatusFailed     = "failed"
)

// StartRequest describes the transcription job to run.
type StartRequest struct {
	EpisodeID      string `json:"episode_id"`
	AudioURL       string `json:"audio_url,omitempty"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// TaskStatus is the processor's view of a running job.
type TaskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TaskResult carries the finished transcript payload.
type TaskResult struct {
	TaskID     string `json:"task_id"`
	Transcript string `json:"transcript"`
}

// Transcriber defines the operations the orchestrator needs from the
// external processor.
type Transcriber interface {
	// Start submits a job and returns its task ID
	Start(ctx context.Context, req StartRequest) (string, error)

	// Status reports the current state of a task
	Status(ctx context.Context, taskID string) (*TaskStatus, error)

	// Result fetches the transcript of a finished task
	Result(ctx context.Context, taskID string) (*TaskResult, error)
}

// Client handles communication with the transcription processor
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Config holds configuration for the transcriber client
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewClient creates a new transcription processor client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PodBriefAPI/1.0"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
	}
}

// Start submits a transcription job
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	if req.EpisodeID == "" {
		return "", appErr.MissingFieldError("episode_id")
	}

	var status TaskStatus
	if err := c.do(ctx, http.MethodPost, "/transcribe", req, &status); err != nil {
		return "", err
	}
	if status.TaskID == "" {
		return "", appErr.New(appErr.ErrCodeUpstreamUnavailable, "processor accepted job without a task ID")
	}

	log.Printf("[DEBUG] Transcription task %s started for episode %s", status.TaskID, req.EpisodeID)
	return status.TaskID, nil
}

// Status reports the current state of a task
func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	var status TaskStatus
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Result fetches the transcript of a finished task
func (c *Client) Result(ctx context.Context, taskID string) (*TaskResult, error) {
	var result TaskResult
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID+"/result", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes one request against the processor, mapping transport and
// non-2xx failures to upstream errors.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appErr.UpstreamUnavailable("transcriber", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[ERROR] Transcription processor returned status %d for %s", resp.StatusCode, fullURL)
		return appErr.UpstreamUnavailable("transcriber", resp.StatusCode, string(payload))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
