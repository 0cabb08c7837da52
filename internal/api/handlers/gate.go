package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/metrics"
	"github.com/wonny/stagegate/pkg/redis"
)

// GateReader answers gate queries (s4_gate.Gate)
type GateReader interface {
	Decide(sectorID string, date time.Time) contracts.GateDecision
	DecideForInstrument(code string, date time.Time) contracts.GateDecision
	DecideAll(date time.Time) []contracts.GateDecision
}

// GateHandler serves sector gate decisions
// ⭐ SSOT: 게이트 조회 API는 여기서만
type GateHandler struct {
	gate       GateReader
	cache      *redis.Cache
	configHash string
	metrics    *metrics.Recorder
	logger     *logger.Logger
}

// NewGateHandler creates a new gate handler (cache, metrics may be nil)
func NewGateHandler(gate GateReader, cache *redis.Cache, configHash string, rec *metrics.Recorder, log *logger.Logger) *GateHandler {
	return &GateHandler{
		gate:       gate,
		cache:      cache,
		configHash: configHash,
		metrics:    rec,
		logger:     log,
	}
}

// decide consults the shared cache first; 캐시 장애는 게이트 직접 계산으로 대체
func (h *GateHandler) decide(r *http.Request, key string, fn func() contracts.GateDecision) contracts.GateDecision {
	if h.cache == nil {
		return fn()
	}
	d, _ := redis.GetOrSetWhen(r.Context(), h.cache, key, redis.TTLShort, func() (contracts.GateDecision, error) {
		return fn(), nil
	}, cacheable)
	return d
}

// cacheable rejects decisions that only reflect a gate not yet reloaded
func cacheable(d contracts.GateDecision) bool {
	return d.Reason != contracts.GateReasonMissingStage && d.Reason != contracts.GateReasonUnknownInstrument
}

// GetSector returns the decision for one sector
// GET /api/v1/gate/sectors/{id}?date=YYYY-MM-DD
func (h *GateHandler) GetSector(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	date, err := parseDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d := h.decide(r, redis.GateKey(h.configHash, id, date.Format(dateLayout)), func() contracts.GateDecision {
		return h.gate.Decide(id, date)
	})
	h.metrics.RecordGateDecision(string(d.Permission), string(d.Reason))

	respondJSON(w, http.StatusOK, d)
}

// GetInstrument returns the decision of the instrument's sector
// GET /api/v1/gate/instruments/{code}?date=YYYY-MM-DD
func (h *GateHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	date, err := parseDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d := h.decide(r, redis.InstrumentGateKey(h.configHash, code, date.Format(dateLayout)), func() contracts.GateDecision {
		return h.gate.DecideForInstrument(code, date)
	})
	h.metrics.RecordGateDecision(string(d.Permission), string(d.Reason))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":     code,
		"decision": d,
	})
}

// ListSectors returns decisions for every loaded sector
// GET /api/v1/gate/sectors?date=YYYY-MM-DD
func (h *GateHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	decisions := h.gate.DecideAll(date)
	allowed := 0
	for _, d := range decisions {
		if d.Allowed {
			allowed++
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":      date.Format(dateLayout),
		"count":     len(decisions),
		"allowed":   allowed,
		"decisions": decisions,
	})
}
