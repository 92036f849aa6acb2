// Package poller waits for asynchronous generation records to reach a
// terminal state by re-reading them at a fixed interval.
package poller

import (
	"context"
	"log"
	"time"

	"github.com/podbrief/podbrief-api/internal/models"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 15 * time.Minute
)

// Snapshot is the current state of the record being awaited.
type Snapshot struct {
	Status  models.JobStatus
	Content string
	Error   string
}

// LookupFunc reads the record under observation. Returning found=false
// means the row does not exist yet; polling continues.
type LookupFunc func(ctx context.Context) (snap Snapshot, found bool, err error)

// Poller waits for a record keyed by (episode, language) to finish.
type Poller struct {
	interval time.Duration
	timeout  time.Duration
}

// New creates a poller. Non-positive values fall back to defaults.
func New(interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{interval: interval, timeout: timeout}
}

// AwaitCompletion polls lookup until the record reaches a terminal state,
// the hard timeout elapses, or ctx is cancelled. The first check happens
// immediately; cancellation is observed within one interval.
func (p *Poller) AwaitCompletion(ctx context.Context, jobKey string, lookup LookupFunc) (string, error) {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		snap, found, err := lookup(ctx)
		if err != nil {
			return "", err
		}
		if found {
			switch snap.Status {
			case models.JobStatusFinished:
				return snap.Content, nil
			case models.JobStatusFailed:
				return "", appErr.JobFailed(jobKey, snap.Error)
			}
		}

		if attempt%20 == 0 {
			log.Printf("[DEBUG] Still waiting on %s (attempt %d)", jobKey, attempt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", appErr.TimeoutError("await "+jobKey, p.timeout.String())
		case <-ticker.C:
		}
	}
}
