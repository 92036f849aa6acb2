// Package summarizer turns finished transcripts into streamed episode
// summaries using a chat-completion backend.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/podbrief/podbrief-api/pkg/config"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
	"github.com/podbrief/podbrief-api/pkg/relay"
)

// Request describes the episode to summarize.
type Request struct {
	Transcript   string
	Language     string
	ShowTitle    string
	EpisodeTitle string
}

// Summarizer produces a stream of summary text chunks.
type Summarizer interface {
	StreamSummary(ctx context.Context, req Request) (<-chan relay.Chunk, error)
}

// Service implements Summarizer on top of the OpenAI chat API.
type Service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New creates a summarizer service from configuration
func New(cfg config.SummarizerConfig) *Service {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	return &Service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// NewWithClient creates a summarizer with a preconfigured client, used by tests
func NewWithClient(client *openai.Client, model string) *Service {
	return &Service{client: client, model: model}
}

// StreamSummary opens a completion stream for the episode transcript.
// Chunks arrive on the returned channel as the model produces them; the
// channel closes when the stream ends. A chunk with Err set terminates
// the stream early.
func (s *Service) StreamSummary(ctx context.Context, req Request) (<-chan relay.Chunk, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, appErr.MissingFieldError("transcript")
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(req),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Transcript,
			},
		},
	})
	if err != nil {
		return nil, appErr.UpstreamUnavailable("summarizer", 0, err.Error())
	}

	out := make(chan relay.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				log.Printf("[ERROR] Summary stream interrupted: %v", err)
				select {
				case out <- relay.Chunk{Err: appErr.Wrap(err, appErr.ErrCodeUpstreamUnavailable, "summary stream interrupted")}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- relay.Chunk{Text: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You summarize podcast episode transcripts. ")
	b.WriteString("Write a concise summary covering the key topics, notable quotes, and conclusions. ")
	if req.ShowTitle != "" || req.EpisodeTitle != "" {
		fmt.Fprintf(&b, "The episode is %q from the show %q. ", req.EpisodeTitle, req.ShowTitle)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "Write the summary in the language with code %q.", req.Language)
	}
	return strings.TrimSpace(b.String())
}
