package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/blueprintmaster/blueprint/internal/stats"
)

// DashboardHandlers serves the usage and ranking endpoints.
type DashboardHandlers struct {
	store stats.RecordStore
	log   zerolog.Logger
}

// NewDashboardHandlers creates the dashboard handler set.
func NewDashboardHandlers(store stats.RecordStore, log zerolog.Logger) *DashboardHandlers {
	return &DashboardHandlers{store: store, log: log}
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// TopBooks handles GET /api/dashboard/books?role=&limit=.
func (h *DashboardHandlers) TopBooks(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	limit := parseLimit(r.URL.Query().Get("limit"), 20)

	books, err := h.store.TopBooks(r.Context(), role, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to query book ranking")
		respondError(w, http.StatusInternalServerError, "failed to load book ranking")
		return
	}
	if books == nil {
		books = []stats.BookStat{}
	}
	respondData(w, books)
}

// Usage handles GET /api/dashboard/usage?limit=.
func (h *DashboardHandlers) Usage(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50)

	records, err := h.store.UsageSummary(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to query usage records")
		respondError(w, http.StatusInternalServerError, "failed to load usage records")
		return
	}
	if records == nil {
		records = []stats.UsageRecord{}
	}
	respondData(w, records)
}
