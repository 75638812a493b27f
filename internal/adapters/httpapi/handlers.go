package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larriantoniy/tg_webapp_api/internal/classifier"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/useCases"
)

const statusSuccess = "success"

// Service: операции, которые обслуживает HTTP-слой
type Service interface {
	WebAppData(ctx context.Context, req useCases.Request) (*useCases.WebAppData, error)
	JoinChannels(ctx context.Context, req useCases.Request) error
	CreateLegacy(ctx context.Context, req useCases.Request) error
	SetMarker(ctx context.Context, req useCases.Request, marker useCases.Marker, add bool) error
	StartBot(ctx context.Context, req useCases.Request) error
}

type handlers struct {
	svc             Service
	classifier      *classifier.Classifier
	metrics         *metrics.Metrics
	log             *slog.Logger
	defaultPlatform string
}

// fail отдаёт классифицированную ошибку с эхом тела запроса
func (h *handlers) fail(c *gin.Context, route string, err error) {
	resp := h.classifier.Classify(err, rawBody(c))
	h.metrics.RecordResponse(route, string(resp.Status))
	loggerFrom(c, h.log).Debug("request failed", "route", route, "status", resp.Status, "error", err)
	c.JSON(resp.HTTPStatus, resp.Body())
}

func (h *handlers) ok(c *gin.Context, route string, body gin.H) {
	h.metrics.RecordResponse(route, statusSuccess)
	if body == nil {
		body = gin.H{}
	}
	body["status"] = statusSuccess
	c.JSON(http.StatusOK, body)
}

// simple оборачивает операции без полезной нагрузки в ответе
func (h *handlers) simple(route string, op func(ctx context.Context, req useCases.Request) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := parseRequest(rawBody(c), h.defaultPlatform)
		if err != nil {
			h.fail(c, route, err)
			return
		}
		if err := op(c.Request.Context(), req); err != nil {
			h.fail(c, route, err)
			return
		}
		h.ok(c, route, nil)
	}
}

func (h *handlers) webAppData(c *gin.Context) {
	const route = "getTgWebAppData"

	req, err := parseRequest(rawBody(c), h.defaultPlatform)
	if err != nil {
		h.fail(c, route, err)
		return
	}
	out, err := h.svc.WebAppData(c.Request.Context(), req)
	if err != nil {
		h.fail(c, route, err)
		return
	}

	body := gin.H{
		"tgWebAppData": out.TgWebAppData,
		"authUrl":      out.AuthURL,
		"apiJson":      out.APIJSON,
		"number":       nil,
		"isPremium":    nil,
		"username":     nil,
		"userId":       0,
	}
	if acct := out.Account; acct != nil {
		body["number"] = acct.Phone
		body["isPremium"] = acct.Premium
		body["username"] = nullable(acct.Username)
		body["userId"] = acct.ID
	}
	h.ok(c, route, body)
}

func (h *handlers) marker(route string, marker useCases.Marker, add bool) gin.HandlerFunc {
	return h.simple(route, func(ctx context.Context, req useCases.Request) error {
		return h.svc.SetMarker(ctx, req, marker, add)
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// recovery превращает панику обработчика в unknown_error
func (h *handlers) recovery(c *gin.Context, recovered any) {
	loggerFrom(c, h.log).Error("handler panic", "panic", recovered, "path", c.Request.URL.Path)
	h.fail(c, c.FullPath(), fmt.Errorf("internal error: %v", recovered))
	c.Abort()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
