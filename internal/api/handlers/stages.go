package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/redis"
)

// StageReader reads stored stage sequences (s0_data.StageRepository)
type StageReader interface {
	GetSeries(ctx context.Context, kind contracts.SeriesKind, seriesID string, from, to time.Time) ([]contracts.StageRecord, error)
	GetLatest(ctx context.Context, kind contracts.SeriesKind) (map[string]contracts.StageRecord, error)
}

// StageHandler serves stage records
// ⭐ SSOT: 스테이지 조회 API는 여기서만
type StageHandler struct {
	stages     StageReader
	cache      *redis.Cache
	configHash string
	logger     *logger.Logger
}

// NewStageHandler creates a new stage handler (cache may be nil)
func NewStageHandler(stages StageReader, cache *redis.Cache, configHash string, log *logger.Logger) *StageHandler {
	return &StageHandler{
		stages:     stages,
		cache:      cache,
		configHash: configHash,
		logger:     log,
	}
}

// StageItem is one stage record in API form
type StageItem struct {
	Date                string   `json:"date"`
	Stage               int      `json:"stage"`
	StageName           string   `json:"stage_name"`
	ReasonCodes         []string `json:"reason_codes"`
	EverDislocated      bool     `json:"ever_dislocated"`
	InsufficientHistory bool     `json:"insufficient_history"`
}

// StageSeriesResponse is the stage sequence of one series
type StageSeriesResponse struct {
	Kind     string      `json:"kind"`
	SeriesID string      `json:"series_id"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Records  []StageItem `json:"records"`
}

func toItem(r contracts.StageRecord) StageItem {
	reasons := make([]string, len(r.ReasonCodes))
	for i, c := range r.ReasonCodes {
		reasons[i] = string(c)
	}
	return StageItem{
		Date:                r.Date.Format(dateLayout),
		Stage:               int(r.Stage),
		StageName:           r.Stage.String(),
		ReasonCodes:         reasons,
		EverDislocated:      r.EverDislocated,
		InsufficientHistory: r.InsufficientHistory,
	}
}

// GetSeries returns the stage records of one series
// GET /api/v1/stages/{kind}/{id}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StageHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := parseKind(vars["kind"])
	if !ok {
		respondError(w, http.StatusBadRequest, "kind must be 'instrument' or 'sector'")
		return
	}
	id := vars["id"]

	to, err := parseDateOr(r, "to", time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseDateOr(r, "from", to.AddDate(0, -3, 0))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "'from' must not be after 'to'")
		return
	}

	key := redis.StageKey(h.configHash, string(kind), id) + ":" + from.Format(dateLayout) + ":" + to.Format(dateLayout)
	load := func() (StageSeriesResponse, error) {
		records, err := h.stages.GetSeries(r.Context(), kind, id, from, to)
		if err != nil {
			return StageSeriesResponse{}, err
		}
		resp := StageSeriesResponse{
			Kind:     string(kind),
			SeriesID: id,
			From:     from.Format(dateLayout),
			To:       to.Format(dateLayout),
			Records:  make([]StageItem, len(records)),
		}
		for i, rec := range records {
			resp.Records[i] = toItem(rec)
		}
		return resp, nil
	}

	var resp StageSeriesResponse
	if h.cache != nil {
		resp, err = redis.GetOrSet(r.Context(), h.cache, key, redis.TTLMedium, load)
	} else {
		resp, err = load()
	}
	if err != nil {
		h.logger.WithError(err).WithField("series_id", id).Error("Failed to get stage series")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stages")
		return
	}
	if len(resp.Records) == 0 {
		respondError(w, http.StatusNotFound, "No stage records for "+id)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// LatestItem is the most recent stage of a series
type LatestItem struct {
	SeriesID string `json:"series_id"`
	StageItem
}

// GetLatest returns the latest stage of every series of a kind
// GET /api/v1/stages/{kind}
func (h *StageHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(mux.Vars(r)["kind"])
	if !ok {
		respondError(w, http.StatusBadRequest, "kind must be 'instrument' or 'sector'")
		return
	}

	latest, err := h.stages.GetLatest(r.Context(), kind)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest stages")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stages")
		return
	}

	// 스테이지별 필터 (?stage=6)
	want := r.URL.Query().Get("stage")

	items := make([]LatestItem, 0, len(latest))
	for id, rec := range latest {
		item := LatestItem{SeriesID: id, StageItem: toItem(rec)}
		if want != "" && want != strconv.Itoa(item.Stage) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SeriesID < items[j].SeriesID })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  string(kind),
		"count": len(items),
		"items": items,
	})
}
