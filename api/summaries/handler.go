package summaries

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/podbrief/podbrief-api/api/middleware"
	"github.com/podbrief/podbrief-api/api/types"
	"github.com/podbrief/podbrief-api/internal/models"
	"github.com/podbrief/podbrief-api/internal/services/orchestrator"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
	"github.com/podbrief/podbrief-api/pkg/relay"
)

// keepAliveInterval paces whitespace writes while generation has not yet
// produced output. Transcript generation can hold the request open for
// minutes; the writes keep proxies from timing out the idle connection.
// Whitespace before the first content chunk is never counted against the
// client's character budget.
var keepAliveInterval = 10 * time.Second

// Generate streams an AI summary for an episode
// @Summary      Generate episode summary
// @Description  Streams the summary as plain text chunks while it is generated. A cached summary
// @Description  replays through the same response shape. Sessions without the full tier receive
// @Description  at most the configured character budget followed by a truncation marker. Errors
// @Description  raised before the first byte are returned as buffered JSON.
// @Tags         summaries
// @Accept       json
// @Produce      plain
// @Param        id path string true "Episode ID"
// @Param        X-Session-Tier header string false "Session tier, 'full' disables gating"
// @Param        request body types.GenerateRequest true "Generation parameters"
// @Success      200 {string} string "Summary text stream"
// @Failure      400 {object} object{error=string,code=string}
// @Failure      502 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/summarize [post]
func Generate(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")

		var req types.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		merged := openWithKeepAlive(c, buildRequest(episodeID, req), deps)

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		session := middleware.GetSession(c)
		_, err := relay.Run(ctx, merged, relay.WriterSink{W: c.Writer, F: c.Writer}, session)
		if err != nil {
			if !c.Writer.Written() {
				writeError(c, err)
				return
			}
			log.Printf("[ERROR] Summary stream for %s/%s aborted mid-response: %v", episodeID, req.TargetLanguage, err)
			// The 200 already went out, so the failure has to travel
			// in-band or the client mistakes the truncation for the end
			// of the summary.
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.Writer.WriteString("\nError: " + err.Error())
				c.Writer.Flush()
			}
		}
	}
}

// openWithKeepAlive starts the generation in the background and returns a
// channel that carries keep-alive whitespace until the upstream opens, then
// the upstream chunks themselves. Closing the returned channel ends the
// response.
func openWithKeepAlive(c *gin.Context, req orchestrator.Request, deps *types.Dependencies) <-chan relay.Chunk {
	ctx := c.Request.Context()

	type opened struct {
		ch  <-chan relay.Chunk
		err error
	}
	ready := make(chan opened, 1)
	go func() {
		ch, err := deps.Orchestrator.Summarize(ctx, req)
		ready <- opened{ch: ch, err: err}
	}()

	merged := make(chan relay.Chunk)
	go func() {
		defer close(merged)

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		var upstream <-chan relay.Chunk
		for upstream == nil {
			select {
			case res := <-ready:
				if res.err != nil {
					merged <- relay.Chunk{Err: res.err}
					return
				}
				upstream = res.ch
			case <-ticker.C:
				select {
				case merged <- relay.Chunk{Text: " "}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}

		for chunk := range upstream {
			select {
			case merged <- chunk:
			case <-ctx.Done():
				// The orchestrator's tee keeps consuming so the summary
				// still persists after the client disconnects.
				return
			}
		}
	}()

	return merged
}

// Get returns a stored summary
// @Summary      Get episode summary
// @Description  Returns the stored summary with its denormalized episode metadata. Responds 202
// @Description  while generation is still running.
// @Tags         summaries
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        language query string true "Language code"
// @Success      200 {object} object{episode_id=string,language=string,status=string,content=string}
// @Success      202 {object} object{episode_id=string,language=string,status=string}
// @Failure      404 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/summary [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")
		language := c.Query("language")
		if language == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: language"})
			return
		}

		summary, err := deps.Orchestrator.GetSummary(c.Request.Context(), episodeID, language)
		if err != nil {
			writeError(c, err)
			return
		}

		switch summary.Status {
		case models.JobStatusProcessing:
			c.JSON(http.StatusAccepted, gin.H{
				"episode_id": episodeID,
				"language":   language,
				"status":     string(summary.Status),
			})
		default:
			response := gin.H{
				"episode_id":       episodeID,
				"language":         language,
				"status":           string(summary.Status),
				"content":          summary.Content,
				"show_title":       summary.ShowTitle,
				"episode_title":    summary.EpisodeTitle,
				"episode_duration": summary.EpisodeDuration,
			}
			if summary.PublishDate != nil {
				response["publish_date"] = summary.PublishDate.Format(time.RFC3339)
			}
			if summary.Error != "" {
				response["error"] = summary.Error
			}
			c.JSON(http.StatusOK, response)
		}
	}
}

// Delete soft-deletes a summary
// @Summary      Delete episode summary
// @Tags         summaries
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        language query string true "Language code"
// @Success      200 {object} object{episode_id=string,language=string,deleted=bool}
// @Failure      404 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/summary [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")
		language := c.Query("language")
		if language == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: language"})
			return
		}

		if err := deps.SummaryService.DeleteSummary(c.Request.Context(), episodeID, language); err != nil {
			writeError(c, err)
			return
		}

		log.Printf("[DEBUG] Summary deleted for %s/%s", episodeID, language)
		c.JSON(http.StatusOK, gin.H{
			"episode_id": episodeID,
			"language":   language,
			"deleted":    true,
		})
	}
}

// buildRequest maps the HTTP body onto an orchestrator request.
func buildRequest(episodeID string, req types.GenerateRequest) orchestrator.Request {
	return orchestrator.Request{
		EpisodeID:      episodeID,
		AudioURL:       req.AudioURL,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Transcript:     req.Transcript,
		FeedURL:        req.FeedURL,
		EpisodeGUID:    req.EpisodeGUID,
		ShowTitle:      req.Metadata.ShowTitle,
		EpisodeTitle:   req.Metadata.EpisodeTitle,
		DurationText:   req.Metadata.DurationText,
		PublishDate:    req.Metadata.PublishDate,
		NoPersist:      req.NoPersist,
	}
}

// writeError maps service errors to JSON responses.
func writeError(c *gin.Context, err error) {
	c.JSON(appErr.GetHTTPCode(err), gin.H{
		"error": err.Error(),
		"code":  string(appErr.GetCode(err)),
	})
}
