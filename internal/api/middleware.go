package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/metrics"
	"github.com/wonny/stagegate/pkg/redis"
)

// statusRecorder captures the response status for logging/metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the route template to keep metric cardinality low
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := log.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if rec.status >= 500 {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		})
	}
}

// metricsMiddleware records request count and latency per route template
func metricsMiddleware(m *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			m.ObserveHTTP(routeLabel(r), r.Method, rec.status, time.Since(start).Seconds())
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter limits requests per client IP.
// Redis 사용 시 인스턴스 간 공유 한도, 아니면 프로세스 내 토큰 버킷
type RateLimiter struct {
	perSecond float64
	burst     int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	shared *redis.RateLimiter // optional
	logger *logger.Logger
}

// NewRateLimiter creates a limiter; perSecond <= 0 disables limiting (nil 반환)
func NewRateLimiter(perSecond float64, burst int, shared *redis.RateLimiter, log *logger.Logger) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(perSecond) + 1
	}
	return &RateLimiter{
		perSecond: perSecond,
		burst:     burst,
		buckets:   make(map[string]*rate.Limiter),
		shared:    shared,
		logger:    log,
	}
}

// Allow reports whether a request from client may proceed
func (l *RateLimiter) Allow(r *http.Request, client string) bool {
	if l.shared != nil {
		allowed, _, err := l.shared.Allow(r.Context(), redis.APIRateLimit(client, l.perSecond, l.burst))
		if err == nil {
			return allowed
		}
		// Redis 장애 시 로컬 버킷으로 대체
		l.logger.WithError(err).Warn("Shared rate limit unavailable, using local limiter")
	}

	l.mu.Lock()
	bucket, ok := l.buckets[client]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		l.buckets[client] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r, clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
