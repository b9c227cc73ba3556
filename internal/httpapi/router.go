package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(h *Handler, cfg common.ServerConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))

	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	v1.Use(RateLimit(cfg.RateLimit, cfg.RateBurst, logger))
	{
		v1.POST("/invoices", h.Upload)
		v1.POST("/invoices/text", h.ProcessText)
		v1.GET("/invoices", h.List)
		v1.GET("/invoices/:invoice_no", h.Get)
		v1.GET("/invoices/:invoice_no/correction", h.Template)
		v1.PUT("/invoices/:invoice_no/correction", h.Correct)
		v1.GET("/export", h.Export)
		v1.GET("/stats", h.Stats)
	}
	return r
}
