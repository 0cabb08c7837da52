package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/pkg/logger"
)

// Runner runs a classification pass (brain.Orchestrator)
type Runner interface {
	Run(ctx context.Context, rc brain.RunConfig) (*brain.RunResult, error)
}

// RunHandler triggers classification runs on demand
type RunHandler struct {
	runner      Runner
	workers     int
	historyDays int
	gitSHA      string
	running     sync.Mutex
	logger      *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runner Runner, workers, historyDays int, gitSHA string, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runner:      runner,
		workers:     workers,
		historyDays: historyDays,
		gitSHA:      gitSHA,
		logger:      log,
	}
}

// RunRequest selects what to classify
type RunRequest struct {
	AsOf        string   `json:"as_of"` // YYYY-MM-DD
	Codes       []string `json:"codes,omitempty"`
	Instruments *bool    `json:"instruments,omitempty"` // 기본 true
	Sectors     *bool    `json:"sectors,omitempty"`     // 기본 true
	DryRun      bool     `json:"dry_run"`
}

// Trigger runs a classification synchronously; 동시에 한 번만 실행
// POST /api/v1/runs
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	asOf, err := time.Parse(dateLayout, req.AsOf)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'as_of' date format (expected YYYY-MM-DD)")
		return
	}

	if !h.running.TryLock() {
		respondError(w, http.StatusConflict, "A classification run is already in progress")
		return
	}
	defer h.running.Unlock()

	rc := brain.RunConfig{
		AsOf:        asOf,
		HistoryDays: h.historyDays,
		Workers:     h.workers,
		GitSHA:      h.gitSHA,
		Codes:       req.Codes,
		Instruments: req.Instruments == nil || *req.Instruments,
		Sectors:     req.Sectors == nil || *req.Sectors,
		DryRun:      req.DryRun,
	}

	result, err := h.runner.Run(r.Context(), rc)
	if err != nil {
		h.logger.WithError(err).Error("Classification run failed")
		respondError(w, http.StatusInternalServerError, "Classification run failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}
