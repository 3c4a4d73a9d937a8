package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/manager"
	"github.com/dataprepper-go/pipeline/internal/scheduler"
)

// Handler holds the control API's dependencies (spec.md §6).
type Handler struct {
	mgr              *manager.Manager
	refresher        *scheduler.StatsRefresher
	prometheusRegistry bool
	promHandler      http.Handler
	sysHandler       http.Handler
}

// NewHandler constructs a Handler. enablePrometheus gates both
// /metrics/prometheus and /metrics/sys, mirroring spec.md §6's
// "subject to the same gate" rule.
func NewHandler(mgr *manager.Manager, refresher *scheduler.StatsRefresher, enablePrometheus bool) *Handler {
	h := &Handler{
		mgr:                mgr,
		refresher:          refresher,
		prometheusRegistry: enablePrometheus,
	}
	if enablePrometheus {
		h.promHandler = promhttp.HandlerFor(newPrometheusRegistry(refresher), promhttp.HandlerOpts{})
		h.sysHandler = promhttp.HandlerFor(newSysRegistry(), promhttp.HandlerOpts{})
	}
	return h
}

// List handles GET /list: the names of currently running pipelines.
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.ListRunningPipelines())
}

// Shutdown handles POST /shutdown: responds 200 immediately and triggers
// the manager's shutdown on its own goroutine, since spec.md §6 requires
// the HTTP response not to wait for every pipeline to drain.
func (h *Handler) Shutdown(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "shutdown initiated"})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("shutdown requested via control API")
		h.mgr.Shutdown(ctx)
	}()
}

// MetricsPrometheus handles GET /metrics/prometheus.
func (h *Handler) MetricsPrometheus(c *gin.Context) {
	if !h.prometheusRegistry {
		c.Status(http.StatusNotFound)
		return
	}
	h.promHandler.ServeHTTP(c.Writer, c.Request)
}

// MetricsSys handles GET /metrics/sys.
func (h *Handler) MetricsSys(c *gin.Context) {
	if !h.prometheusRegistry {
		c.Status(http.StatusNotFound)
		return
	}
	h.sysHandler.ServeHTTP(c.Writer, c.Request)
}
