package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/response"
)

// MirrorHandler copies the registry to and from PostgreSQL.
type MirrorHandler struct {
	mirror *service.MirrorService
}

// NewMirrorHandler constructs MirrorHandler.
func NewMirrorHandler(mirror *service.MirrorService) *MirrorHandler {
	return &MirrorHandler{mirror: mirror}
}

// Push godoc
// @Summary Replace the database mirror with the registry contents
// @Tags Mirror
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /mirror/push [post]
func (h *MirrorHandler) Push(c *gin.Context) {
	counts, err := h.mirror.Push(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"counts": counts})
}

// Pull godoc
// @Summary Load the database mirror into the registry
// @Tags Mirror
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /mirror/pull [post]
func (h *MirrorHandler) Pull(c *gin.Context) {
	counts, err := h.mirror.Pull(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"counts": counts})
}
