package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beatmarket/internal/config"
	"beatmarket/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_StreamsUntilUploadEnds(t *testing.T) {
	hub := service.NewProgressHub()
	h := NewUploadHandler(service.NewMockUploadService(), hub, config.UploadConfig{})
	r := newTestRouter()
	r.GET("/uploads/:id/progress", h.Progress)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/uploads/up-1/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	key := service.ProgressKey(testUserID, "up-1")
	hub.Publish(key, 42)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		UploadID string `json:"uploadId"`
		Progress int    `json:"progress"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "up-1", msg.UploadID)
	assert.Equal(t, 42, msg.Progress)

	hub.Close(key)
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
