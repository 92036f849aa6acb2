// Package episodes resolves episode metadata from podcast RSS feeds.
// The resolved fields are denormalized onto summary rows so reads never
// need a feed fetch.
package episodes

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/podbrief/podbrief-api/pkg/config"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

// Metadata is the denormalized episode description carried on summaries.
type Metadata struct {
	ShowTitle    string
	EpisodeTitle string
	DurationText string
	PublishDate  *time.Time
}

// Resolver looks up episode metadata by feed URL and episode GUID.
type Resolver interface {
	Resolve(ctx context.Context, feedURL, episodeGUID string) (*Metadata, error)
}

// Service implements Resolver with an RSS/Atom feed parser.
type Service struct {
	parser *gofeed.Parser
}

// New creates a feed-backed metadata resolver
func New(cfg config.FeedsConfig) *Service {
	parser := gofeed.NewParser()
	if cfg.UserAgent != "" {
		parser.UserAgent = cfg.UserAgent
	}
	return &Service{parser: parser}
}

// Resolve fetches the feed and finds the item matching episodeGUID.
// When the GUID is not present in the feed the episode is reported as
// not found; callers fall back to request-supplied metadata.
func (s *Service) Resolve(ctx context.Context, feedURL, episodeGUID string) (*Metadata, error) {
	if feedURL == "" {
		return nil, appErr.MissingFieldError("feed_url")
	}

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Printf("[ERROR] Failed to parse feed %s: %v", feedURL, err)
		return nil, appErr.UpstreamUnavailable("feed", 0, err.Error())
	}

	for _, item := range feed.Items {
		if item.GUID != episodeGUID {
			continue
		}

		meta := &Metadata{
			ShowTitle:    strings.TrimSpace(feed.Title),
			EpisodeTitle: strings.TrimSpace(item.Title),
			PublishDate:  SanitizePublishDate(item.PublishedParsed),
		}
		if item.ITunesExt != nil {
			meta.DurationText = strings.TrimSpace(item.ITunesExt.Duration)
		}
		return meta, nil
	}

	return nil, appErr.NotFound("episode", episodeGUID)
}

// SanitizePublishDate drops dates a feed clearly got wrong: zero values
// and timestamps in the future or before podcasting existed.
func SanitizePublishDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	if t.Year() < 2000 {
		return nil
	}
	if t.After(time.Now().Add(24 * time.Hour)) {
		return nil
	}
	u := t.UTC()
	return &u
}
