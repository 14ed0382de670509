package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/service"
)

// DatabasePinger is satisfied by *sqlx.DB.
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// CacheProbe reports redis availability.
type CacheProbe interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Cache    string                   `json:"cache"`
	Time     time.Time                `json:"time"`
	Metrics  *service.MetricsSnapshot `json:"metrics,omitempty"`
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      DatabasePinger
	cache   CacheProbe
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, db DatabasePinger, cache CacheProbe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Service health
// @Description Pings the database and cache. 503 when the database is unreachable.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := HealthStatus{Status: "ok", Database: "up", Cache: "disabled", Time: time.Now().UTC()}
	code := http.StatusOK

	if h.db == nil || h.db.PingContext(ctx) != nil {
		body.Status = "unavailable"
		body.Database = "down"
		code = http.StatusServiceUnavailable
	}
	if h.cache != nil && h.cache.Enabled() {
		body.Cache = "up"
		if err := h.cache.Ping(ctx); err != nil {
			body.Cache = "down"
			if code == http.StatusOK {
				body.Status = "degraded"
			}
		}
	}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		body.Metrics = &snapshot
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(code, body)
}
