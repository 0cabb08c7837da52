package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/stagegate/internal/api/handlers"
	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/metrics"
)

// RouterDeps groups the handlers and middleware collaborators
type RouterDeps struct {
	Stages   *handlers.StageHandler
	Gate     *handlers.GateHandler
	Runs     *handlers.RunHandler // optional
	System   *handlers.SystemHandler
	Limiter  *RateLimiter // optional
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer // nil이면 /metrics 비활성
	Logger   *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", d.System.Health).Methods("GET")
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/config", d.System.GetConfig).Methods("GET")

	// Stage endpoints
	api.HandleFunc("/stages/{kind}", d.Stages.GetLatest).Methods("GET")
	api.HandleFunc("/stages/{kind}/{id}", d.Stages.GetSeries).Methods("GET")

	// Gate endpoints
	api.HandleFunc("/gate/sectors", d.Gate.ListSectors).Methods("GET")
	api.HandleFunc("/gate/sectors/{id}", d.Gate.GetSector).Methods("GET")
	api.HandleFunc("/gate/instruments/{code}", d.Gate.GetInstrument).Methods("GET")

	if d.Runs != nil {
		api.HandleFunc("/runs", d.Runs.Trigger).Methods("POST")
	}

	if d.Limiter != nil {
		api.Use(d.Limiter.Middleware)
	}

	// Apply middleware
	r.Use(metricsMiddleware(d.Metrics))
	r.Use(loggingMiddleware(d.Logger))
	r.Use(recoveryMiddleware(d.Logger))

	return r
}
