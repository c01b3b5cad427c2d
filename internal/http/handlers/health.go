package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one backing dependency.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	service  string
	version  string
	checks   map[string]PingFunc
	draining func() bool
}

// create a new instance of the health handler
func NewHealthHandler(service, version string, checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{service: service, version: version, checks: checks}
}

// WithDraining makes readiness fail once fn reports the server is shutting down.
func (h *HealthHandler) WithDraining(fn func() bool) *HealthHandler {
	h.draining = fn
	return h
}

func (h *HealthHandler) Banner(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Storefront API is running",
		"service": h.service,
		"version": h.version,
	})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency and reports 503 while any of them is down.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining != nil && h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, ping := range h.checks {
		if err := ping(cctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}

	ctx.JSON(status, gin.H{"status": state, "checks": results})
}
