package httpapi

import (
	"bytes"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxBodyKey   = "raw_body"
	ctxLoggerKey = "logger"
)

// maxBodySize ограничивает захватываемое тело запроса
const maxBodySize = 1 << 20

// captureBody читает тело целиком, сохраняет его для эха в ответе об ошибке
// и подкладывает обратно в запрос.
func captureBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
		_ = c.Request.Body.Close()
		if err != nil {
			body = nil
		}
		c.Set(ctxBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// requestID проставляет идентификатор запроса и логгер с ним
func requestID(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set(ctxLoggerKey, log.With("request_id", id))
		c.Next()
	}
}

func instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func rawBody(c *gin.Context) []byte {
	if v, ok := c.Get(ctxBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

func loggerFrom(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return fallback
}
