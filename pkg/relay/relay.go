// Package relay forwards streamed text chunks to a client while enforcing
// a per-session character budget. Sessions without full-stream access get a
// rune-counted prefix of the stream followed by a single limit marker; the
// rest of the stream is still drained so the complete text can be persisted.
package relay

import (
	"context"
	"io"
	"strings"
)

// LimitMarker is appended exactly once when a gated session exhausts its
// character budget. Clients detect it to render an upgrade prompt.
const LimitMarker = "\n---GATING_LIMIT_REACHED---\n"

// DefaultBudget is the number of characters a gated session may receive
// when no explicit budget is configured.
const DefaultBudget = 1200

// Chunk is one unit of streamed text. A non-nil Err terminates the stream;
// producers must not send further chunks after an error.
type Chunk struct {
	Text string
	Err  error
}

// Session describes how much of the stream the connected client may see.
type Session struct {
	// AllowFullStream disables gating entirely.
	AllowFullStream bool
	// MaxClientChars overrides DefaultBudget when positive.
	MaxClientChars int
}

func (s Session) budget() int {
	if s.MaxClientChars > 0 {
		return s.MaxClientChars
	}
	return DefaultBudget
}

// Sink receives forwarded text. Implementations flush after each send so
// clients see tokens as they arrive.
type Sink interface {
	Send(text string) error
}

// Flusher matches http.Flusher without importing net/http here.
type Flusher interface {
	Flush()
}

// WriterSink adapts an io.Writer (optionally flushable) into a Sink.
type WriterSink struct {
	W io.Writer
	F Flusher
}

func (s WriterSink) Send(text string) error {
	if _, err := io.WriteString(s.W, text); err != nil {
		return err
	}
	if s.F != nil {
		s.F.Flush()
	}
	return nil
}

// Run consumes upstream until it closes, errors, or ctx is cancelled,
// forwarding text to sink subject to the session's gating rules. It returns
// the full accumulated text regardless of how much was forwarded, so callers
// can persist the complete result even for gated sessions.
//
// Whitespace-only chunks arriving before any real content are forwarded as
// keep-alive bytes but excluded from both the budget and the accumulated
// text.
func Run(ctx context.Context, upstream <-chan Chunk, sink Sink, sess Session) (string, error) {
	var full strings.Builder
	sentRunes := 0
	markerSent := false
	seenContent := false

	for {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		case chunk, ok := <-upstream:
			if !ok {
				return full.String(), nil
			}
			if chunk.Err != nil {
				return full.String(), chunk.Err
			}
			if chunk.Text == "" {
				continue
			}

			if !seenContent && strings.TrimSpace(chunk.Text) == "" {
				if err := sink.Send(chunk.Text); err != nil {
					return full.String(), err
				}
				continue
			}
			seenContent = true
			full.WriteString(chunk.Text)

			if sess.AllowFullStream {
				if err := sink.Send(chunk.Text); err != nil {
					return full.String(), err
				}
				continue
			}

			if markerSent {
				// Budget exhausted: drain silently so full keeps growing.
				continue
			}

			remaining := sess.budget() - sentRunes
			runes := []rune(chunk.Text)
			if len(runes) <= remaining {
				if err := sink.Send(chunk.Text); err != nil {
					return full.String(), err
				}
				sentRunes += len(runes)
				continue
			}

			if remaining > 0 {
				if err := sink.Send(string(runes[:remaining])); err != nil {
					return full.String(), err
				}
				sentRunes += remaining
			}
			if err := sink.Send(LimitMarker); err != nil {
				return full.String(), err
			}
			markerSent = true
		}
	}
}
