package handler

import (
	"beatmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// DownloadHandler hands out download links of purchased beats.
type DownloadHandler struct {
	downloadService service.DownloadService
}

// NewDownloadHandler creates a DownloadHandler.
func NewDownloadHandler(downloadService service.DownloadService) *DownloadHandler {
	return &DownloadHandler{downloadService: downloadService}
}

// Download returns presigned links when the caller owns the beat.
func (h *DownloadHandler) Download(c *gin.Context) {
	info, err := h.downloadService.GetDownloadURL(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "DownloadHandler", err)
		return
	}
	respondOK(c, info)
}
