package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/stagegate/internal/stageconfig"
)

// Pinger is a dependency checked by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and configuration
type SystemHandler struct {
	cfg        *stageconfig.Config
	configHash string
	deps       map[string]Pinger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(cfg *stageconfig.Config, configHash string, deps map[string]Pinger) *SystemHandler {
	return &SystemHandler{
		cfg:        cfg,
		configHash: configHash,
		deps:       deps,
	}
}

// Health returns server and dependency health
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":      overall,
		"service":     "stagegate-api",
		"config_hash": h.configHash,
		"checks":      checks,
	})
}

// GetConfig returns the active stage config, its hash and warnings
// GET /api/v1/config
func (h *SystemHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_hash": h.configHash,
		"warmup_bars": h.cfg.WarmupBars(),
		"warnings":    stageconfig.Warn(h.cfg),
		"config":      h.cfg,
	})
}
