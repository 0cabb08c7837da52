package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/stagegate/internal/contracts"
)

const dateLayout = "2006-01-02"

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// parseDate reads a required YYYY-MM-DD query parameter
func parseDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("'%s' is required (YYYY-MM-DD)", name)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' date format (expected YYYY-MM-DD)", name)
	}
	return t, nil
}

// parseDateOr reads an optional YYYY-MM-DD query parameter
func parseDateOr(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	if r.URL.Query().Get(name) == "" {
		return fallback, nil
	}
	return parseDate(r, name)
}

// parseKind maps the path segment to a series kind
func parseKind(raw string) (contracts.SeriesKind, bool) {
	switch contracts.SeriesKind(raw) {
	case contracts.SeriesInstrument, contracts.SeriesSector:
		return contracts.SeriesKind(raw), true
	}
	return "", false
}
