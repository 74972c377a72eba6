package handler

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"beatmarket/internal/config"
	"beatmarket/internal/service"
	"beatmarket/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	progressWriteTimeout = 10 * time.Second
	// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk.
	multipartMemory = 32 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// UploadHandler serves file uploads and their progress.
type UploadHandler struct {
	uploadService service.UploadService
	hub           *service.ProgressHub
	limits        config.UploadConfig
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploadService service.UploadService, hub *service.ProgressHub, limits config.UploadConfig) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, hub: hub, limits: limits}
}

// Upload accepts a multipart form with either a file or an existingUrl.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.limits.MaxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxRequestBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		respondBadRequest(c, "invalid multipart form")
		return
	}
	userID := currentUserID(c)

	kind, err := service.ParseUploadKind(c.PostForm("kind"))
	if err != nil {
		respondError(c, "UploadHandler", err)
		return
	}
	uploadID := strings.TrimSpace(c.PostForm("uploadId"))

	if existing := strings.TrimSpace(c.PostForm("existingUrl")); existing != "" {
		result, err := h.uploadService.Upload(c.Request.Context(), service.UploadRequest{
			Input:      service.ExistingRef{URL: existing},
			Bucket:     kind.Bucket(),
			UploaderID: userID,
			UploadID:   uploadID,
		})
		if err != nil {
			respondError(c, "UploadHandler", err)
			return
		}
		respondOK(c, result)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file: a file or existingUrl is required")
		return
	}
	meta := service.FileMeta{
		Name:     fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
	}
	if err := service.ValidateUpload(kind, meta, splitList(c.PostForm("licenses")), h.limits); err != nil {
		respondError(c, "UploadHandler", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("[UploadHandler] failed to open multipart file", err)
		respondBadRequest(c, "file: could not be read")
		return
	}
	defer file.Close()

	result, err := h.uploadService.Upload(c.Request.Context(), service.UploadRequest{
		Input: service.Blob{
			Data:     file,
			Size:     meta.Size,
			Name:     meta.Name,
			MimeType: meta.MimeType,
		},
		Bucket:     kind.Bucket(),
		Dir:        path.Join(userID, string(kind)),
		UploaderID: userID,
		UploadID:   uploadID,
	})
	if err != nil {
		respondError(c, "UploadHandler", err)
		return
	}
	respondOK(c, result)
}

// Status returns the persisted progress of an upload of the caller.
func (h *UploadHandler) Status(c *gin.Context) {
	st, err := h.uploadService.Status(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "UploadHandler", err)
		return
	}
	respondOK(c, st)
}

// Progress streams live progress values of a running upload over a websocket.
// The stream ends when the upload finishes or the client goes away.
func (h *UploadHandler) Progress(c *gin.Context) {
	userID, uploadID := currentUserID(c), c.Param("id")
	updates, cancel := h.hub.Subscribe(service.ProgressKey(userID, uploadID))
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[UploadHandler] websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	// Reads only detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
					time.Now().Add(progressWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
			if err := conn.WriteJSON(gin.H{"uploadId": uploadID, "progress": p}); err != nil {
				log.Warnw("[UploadHandler] failed to push progress", "uploadId", uploadID, "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
