package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"beatmarket/pkg/log"
	"beatmarket/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody caps the request body bytes copied into a log line.
const maxLoggedBody = 2048

// RequestLogger logs every request and records its metrics. Only JSON bodies
// are logged, truncated, and never those of webhook routes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody []byte
		if loggableBody(c) {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
			c.Request.Body = readCloser{
				Reader: io.MultiReader(bytes.NewReader(requestBody), c.Request.Body),
				Closer: c.Request.Body,
			}
		}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, strconv.Itoa(statusCode), latency.Seconds())

		fields := []interface{}{
			"statusCode", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if len(requestBody) > 0 {
			fields = append(fields, "requestBody", truncate(requestBody))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP request", fields...)
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func loggableBody(c *gin.Context) bool {
	if c.Request.Body == nil || strings.Contains(c.Request.URL.Path, "/webhooks/") {
		return false
	}
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}
