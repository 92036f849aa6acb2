package transcripts

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podbrief/podbrief-api/api/types"
	"github.com/podbrief/podbrief-api/internal/models"
	"github.com/podbrief/podbrief-api/internal/services/orchestrator"
	appErr "github.com/podbrief/podbrief-api/pkg/errors"
)

// Trigger starts transcript generation for an episode
// @Summary      Generate episode transcript
// @Description  Trigger transcript generation for an episode. When the request carries a transcript
// @Description  payload it is validated and stored directly; otherwise the external transcription
// @Description  processor is started and the request returns immediately. Repeat triggers while a
// @Description  run is in flight are absorbed.
// @Tags         transcripts
// @Accept       json
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        request body types.GenerateRequest true "Generation parameters"
// @Success      202 {object} object{episode_id=string,language=string,status=string}
// @Failure      400 {object} object{error=string,code=string}
// @Failure      502 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/transcribe [post]
func Trigger(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")

		var req types.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		err := deps.Orchestrator.TriggerTranscription(c.Request.Context(), buildRequest(episodeID, req))
		if err != nil {
			log.Printf("[ERROR] Failed to trigger transcription for %s/%s: %v", episodeID, req.TargetLanguage, err)
			writeError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"episode_id": episodeID,
			"language":   req.TargetLanguage,
			"status":     string(models.JobStatusProcessing),
		})
	}
}

// Get returns the transcript for an episode as minute buckets
// @Summary      Get episode transcript
// @Description  Retrieve the transcript for an episode grouped into minute buckets. Returns 202
// @Description  while generation is still running. A failed generation is reported with its reason
// @Description  so callers can retry.
// @Tags         transcripts
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        language query string true "Language code"
// @Success      200 {object} object{episode_id=string,language=string,status=string,segments=object}
// @Success      202 {object} object{episode_id=string,language=string,status=string}
// @Failure      400 {object} object{error=string,code=string}
// @Failure      404 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/transcript [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")
		language := c.Query("language")
		if language == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: language"})
			return
		}

		buckets, status, err := deps.Orchestrator.GetTranscript(c.Request.Context(), episodeID, language)
		if err != nil {
			writeError(c, err)
			return
		}

		switch status {
		case models.JobStatusFinished:
			c.JSON(http.StatusOK, gin.H{
				"episode_id": episodeID,
				"language":   language,
				"status":     string(status),
				"segments":   buckets,
			})
		case models.JobStatusProcessing:
			c.JSON(http.StatusAccepted, gin.H{
				"episode_id": episodeID,
				"language":   language,
				"status":     string(status),
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"episode_id": episodeID,
				"language":   language,
				"status":     string(status),
				"error":      failureReason(c, deps, episodeID, language),
			})
		}
	}
}

// Status reports the lifecycle state of a transcript
// @Summary      Get transcript status
// @Tags         transcripts
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        language query string true "Language code"
// @Success      200 {object} object{episode_id=string,language=string,status=string}
// @Failure      404 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/transcript/status [get]
func Status(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")
		language := c.Query("language")
		if language == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: language"})
			return
		}

		transcript, err := deps.TranscriptService.GetTranscript(c.Request.Context(), episodeID, language)
		if err != nil {
			writeError(c, err)
			return
		}

		response := gin.H{
			"episode_id": episodeID,
			"language":   language,
			"status":     string(transcript.Status),
		}
		if transcript.Error != "" {
			response["error"] = transcript.Error
		}
		c.JSON(http.StatusOK, response)
	}
}

// Delete soft-deletes a transcript
// @Summary      Delete episode transcript
// @Description  Soft-deletes the transcript row. A later generation request for the same
// @Description  episode and language revives it.
// @Tags         transcripts
// @Produce      json
// @Param        id path string true "Episode ID"
// @Param        language query string true "Language code"
// @Success      200 {object} object{episode_id=string,language=string,deleted=bool}
// @Failure      404 {object} object{error=string,code=string}
// @Router       /api/v1/episodes/{id}/transcript [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		episodeID := c.Param("id")
		language := c.Query("language")
		if language == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: language"})
			return
		}

		if err := deps.TranscriptService.DeleteTranscript(c.Request.Context(), episodeID, language); err != nil {
			writeError(c, err)
			return
		}

		log.Printf("[DEBUG] Transcript deleted for %s/%s", episodeID, language)
		c.JSON(http.StatusOK, gin.H{
			"episode_id": episodeID,
			"language":   language,
			"deleted":    true,
		})
	}
}

// failureReason fetches the stored failure message for a failed transcript.
func failureReason(c *gin.Context, deps *types.Dependencies, episodeID, language string) string {
	transcript, err := deps.TranscriptService.GetTranscript(c.Request.Context(), episodeID, language)
	if err != nil || transcript == nil {
		return ""
	}
	return transcript.Error
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
