package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type captureSink struct {
	sends []string
	fail  error
}

func (s *captureSink) Send(text string) error {
	if s.fail != nil {
		return s.fail
	}
	s.sends = append(s.sends, text)
	return nil
}

func (s *captureSink) joined() string {
	return strings.Join(s.sends, "")
}

func feed(chunks ...Chunk) <-chan Chunk {
	ch := make(chan Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestRunUngatedPassthrough(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(
		Chunk{Text: "The hosts discuss "},
		Chunk{Text: "the new album "},
		Chunk{Text: "at length."},
	)

	full, err := Run(context.Background(), upstream, sink, Session{AllowFullStream: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "The hosts discuss the new album at length."
	if full != want {
		t.Errorf("accumulated = %q, want %q", full, want)
	}
	if sink.joined() != want {
		t.Errorf("forwarded = %q, want %q", sink.joined(), want)
	}
	if strings.Contains(sink.joined(), LimitMarker) {
		t.Error("ungated stream must not contain limit marker")
	}
}

func TestRunGatedCapsForwardedText(t *testing.T) {
	tests := []struct {
		name   string
		budget int
	}{
		{name: "budget 200", budget: 200},
		{name: "budget 500", budget: 500},
	}

	piece := strings.Repeat("abcdefgh ", 10) // 90 runes per chunk

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunks []Chunk
			for i := 0; i < 10; i++ {
				chunks = append(chunks, Chunk{Text: piece})
			}
			sink := &captureSink{}

			full, err := Run(context.Background(), feed(chunks...), sink, Session{MaxClientChars: tt.budget})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(full) != 900 {
				t.Errorf("accumulated %d runes, want 900", len([]rune(full)))
			}

			forwarded := sink.joined()
			if !strings.HasSuffix(forwarded, LimitMarker) {
				t.Fatalf("forwarded text missing trailing limit marker: %q", forwarded)
			}
			body := strings.TrimSuffix(forwarded, LimitMarker)
			if got := len([]rune(body)); got != tt.budget {
				t.Errorf("forwarded %d runes before marker, want %d", got, tt.budget)
			}
			if strings.Count(forwarded, LimitMarker) != 1 {
				t.Errorf("marker sent %d times, want 1", strings.Count(forwarded, LimitMarker))
			}
			if !strings.HasPrefix(full, body) {
				t.Error("forwarded body must be a prefix of accumulated text")
			}
		})
	}
}

func TestRunGatedCountsRunesNotBytes(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(Chunk{Text: strings.Repeat("播", 10)})

	_, err := Run(context.Background(), upstream, sink, Session{MaxClientChars: 4})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	body := strings.TrimSuffix(sink.joined(), LimitMarker)
	if body != strings.Repeat("播", 4) {
		t.Errorf("forwarded body = %q, want four runes", body)
	}
}

func TestRunDefaultBudget(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(Chunk{Text: strings.Repeat("x", DefaultBudget+100)})

	_, err := Run(context.Background(), upstream, sink, Session{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	body := strings.TrimSuffix(sink.joined(), LimitMarker)
	if len(body) != DefaultBudget {
		t.Errorf("forwarded %d runes, want %d", len(body), DefaultBudget)
	}
}

func TestRunKeepAliveExcludedFromAccumulation(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(
		Chunk{Text: " "},
		Chunk{Text: " "},
		Chunk{Text: "Summary starts here."},
	)

	full, err := Run(context.Background(), upstream, sink, Session{AllowFullStream: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if full != "Summary starts here." {
		t.Errorf("accumulated = %q, keep-alive bytes must be excluded", full)
	}
	// Keep-alive bytes still reach the client.
	if sink.joined() != "  Summary starts here." {
		t.Errorf("forwarded = %q", sink.joined())
	}
}

func TestRunWhitespaceAfterContentAccumulates(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(
		Chunk{Text: "First."},
		Chunk{Text: " "},
		Chunk{Text: "Second."},
	)

	full, err := Run(context.Background(), upstream, sink, Session{AllowFullStream: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if full != "First. Second." {
		t.Errorf("accumulated = %q, want %q", full, "First. Second.")
	}
}

func TestRunUpstreamErrorPropagates(t *testing.T) {
	wantErr := errors.New("model connection reset")
	sink := &captureSink{}
	upstream := feed(
		Chunk{Text: "Partial text "},
		Chunk{Err: wantErr},
	)

	full, err := Run(context.Background(), upstream, sink, Session{AllowFullStream: true})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}
	if full != "Partial text " {
		t.Errorf("accumulated = %q, want partial text preserved", full)
	}
}

func TestRunSinkErrorStopsStream(t *testing.T) {
	wantErr := errors.New("broken pipe")
	sink := &captureSink{fail: wantErr}
	upstream := feed(Chunk{Text: "Hello"})

	_, err := Run(context.Background(), upstream, sink, Session{AllowFullStream: true})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &captureSink{}
	upstream := make(chan Chunk) // never closed, never written

	done := make(chan struct{})
	var err error
	go func() {
		_, err = Run(ctx, upstream, sink, Session{AllowFullStream: true})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunDrainsAfterMarker(t *testing.T) {
	sink := &captureSink{}
	upstream := feed(
		Chunk{Text: strings.Repeat("a", 150)},
		Chunk{Text: strings.Repeat("b", 150)},
		Chunk{Text: strings.Repeat("c", 150)},
	)

	full, err := Run(context.Background(), upstream, sink, Session{MaxClientChars: 200})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(full) != 450 {
		t.Errorf("accumulated %d runes, want 450 (drain must continue past the marker)", len(full))
	}
	body := strings.TrimSuffix(sink.joined(), LimitMarker)
	if len(body) != 200 {
		t.Errorf("forwarded %d runes, want 200", len(body))
	}
	if strings.Contains(body, "c") {
		t.Error("chunks after the marker must not be forwarded")
	}
}
