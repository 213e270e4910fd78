package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// BackupHandler manages data directory backups.
type BackupHandler struct {
	backups       *service.BackupService
	retentionDays int
}

// NewBackupHandler constructs BackupHandler. retentionDays is the cleanup default.
func NewBackupHandler(backups *service.BackupService, retentionDays int) *BackupHandler {
	return &BackupHandler{backups: backups, retentionDays: retentionDays}
}

// Create godoc
// @Summary Queue a backup
// @Description Exports the registry and copies the data directory on a background worker.
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	id, err := h.backups.Enqueue()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": id, "status": "QUEUED"})
}

// List godoc
// @Summary List backups
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.backups.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, backups)
}

// Job godoc
// @Summary Get backup job status
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /backups/jobs/{id} [get]
func (h *BackupHandler) Job(c *gin.Context) {
	state, err := h.backups.JobState(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// Cleanup godoc
// @Summary Remove old backups
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param max_age_days query int false "Age threshold in days"
// @Success 200 {object} response.Envelope
// @Router /backups/cleanup [post]
func (h *BackupHandler) Cleanup(c *gin.Context) {
	days := h.retentionDays
	if raw := c.Query("max_age_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "max_age_days must be an integer"))
			return
		}
		days = v
	}
	deleted, err := h.backups.Cleanup(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	response.OK(c, gin.H{"deleted": deleted, "max_age_days": days})
}
