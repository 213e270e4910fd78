package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/middleware"
	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// TranscriptHandler serves student transcripts.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Get godoc
// @Summary Generate a student transcript
// @Description Returns JSON by default; csv and pdf are sent as attachments.
// @Tags Transcripts
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "json, csv or pdf"
// @Param include_inactive query bool false "Show withdrawn enrollments"
// @Param include_gpa query bool false "Include the cumulative GPA"
// @Param include_summary query bool false "Include enrollment counts"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	format, err := models.ParseTranscriptFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	opts, err := transcriptOptions(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if format == models.TranscriptFormatJSON {
		transcript, err := h.transcripts.Build(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, transcript, middleware.ExtractMeta(c))
		return
	}

	rendered, err := h.transcripts.Render(c.Request.Context(), c.Param("id"), format, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, rendered.Cached)
	response.Attachment(c, rendered.ContentType, rendered.Filename, rendered.Body)
}

func transcriptOptions(c *gin.Context) (models.TranscriptOptions, error) {
	opts := models.DefaultTranscriptOptions()
	overrides := []struct {
		name string
		dest *bool
	}{
		{"include_inactive", &opts.IncludeInactive},
		{"include_gpa", &opts.IncludeGPA},
		{"include_summary", &opts.IncludeSummary},
	}
	for _, o := range overrides {
		v, err := boolQuery(c, o.name)
		if err != nil {
			return opts, err
		}
		if v != nil {
			*o.dest = *v
		}
	}
	return opts, nil
}
