package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/larriantoniy/tg_webapp_api/internal/classifier"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/useCases"
)

// Options: зависимости роутера
type Options struct {
	Service         Service
	Classifier      *classifier.Classifier
	Metrics         *metrics.Metrics
	Log             *slog.Logger
	DefaultPlatform string
}

// NewRouter собирает gin.Engine со всеми маршрутами сервиса
func NewRouter(opts Options) *gin.Engine {
	h := &handlers{
		svc:             opts.Service,
		classifier:      opts.Classifier,
		metrics:         opts.Metrics,
		log:             opts.Log,
		defaultPlatform: opts.DefaultPlatform,
	}
	if h.classifier == nil {
		h.classifier = classifier.New(opts.Log)
	}

	r := gin.New()
	r.Use(requestID(opts.Log), instrument(opts.Metrics), gin.CustomRecovery(h.recovery))

	r.GET("/health", h.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api", captureBody())
	api.POST("/getTgWebAppData", h.webAppData)
	api.POST("/joinChannels", h.simple("joinChannels", h.svc.JoinChannels))
	api.POST("/createTData", h.simple("createTData", h.svc.CreateLegacy))
	api.POST("/startBot", h.simple("startBot", h.svc.StartBot))

	api.POST("/addDiamond", h.marker("addDiamond", useCases.MarkerDiamond, true))
	api.POST("/removeDiamond", h.marker("removeDiamond", useCases.MarkerDiamond, false))
	api.POST("/addCat", h.marker("addCat", useCases.MarkerCat, true))
	api.POST("/removeCat", h.marker("removeCat", useCases.MarkerCat, false))
	api.POST("/addPixel", h.marker("addPixel", useCases.MarkerPixel, true))
	api.POST("/removePixel", h.marker("removePixel", useCases.MarkerPixel, false))

	return r
}
