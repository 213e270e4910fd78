package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// InterchangeHandler exposes bulk export and import of the data directory.
type InterchangeHandler struct {
	interchange *service.InterchangeService
}

// NewInterchangeHandler constructs InterchangeHandler.
func NewInterchangeHandler(interchange *service.InterchangeService) *InterchangeHandler {
	return &InterchangeHandler{interchange: interchange}
}

// Export godoc
// @Summary Export the registry to the data directory
// @Description Writes students.csv, courses.csv, enrollments.csv and instructors.csv and returns signed download links.
// @Tags Interchange
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /interchange/export [post]
func (h *InterchangeHandler) Export(c *gin.Context) {
	report, err := h.interchange.ExportAll(c.Request.Context(), h.interchange.DataDir())
	if err != nil {
		response.Error(c, err)
		return
	}
	links, err := h.interchange.DownloadLinks(report)
	if err != nil {
		response.Error(c, err)
		return
	}
	report.Links = links
	response.OK(c, report)
}

// Import godoc
// @Summary Import the data directory into the registry
// @Description Malformed rows are skipped and reported; missing core files abort the import.
// @Tags Interchange
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /interchange/import [post]
func (h *InterchangeHandler) Import(c *gin.Context) {
	report, err := h.interchange.ImportAll(c.Request.Context(), h.interchange.DataDir())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Download godoc
// @Summary Download an exported file
// @Tags Interchange
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /interchange/files/{token} [get]
func (h *InterchangeHandler) Download(c *gin.Context) {
	f, name, err := h.interchange.OpenSigned(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to stat "+name))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "text/csv", f, map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
		"Cache-Control":       "no-store",
	})
}
