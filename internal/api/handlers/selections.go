package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/minqi/bottomfisher/internal/selection"
	"github.com/minqi/bottomfisher/pkg/logger"
)

const dateFormat = "2006-01-02"

// SelectionHandler serves the stored selection and band results
// ⭐ SSOT: 选股查询 API 处理只在这里
type SelectionHandler struct {
	store  *selection.Store
	logger *logger.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(store *selection.Store, log *logger.Logger) *SelectionHandler {
	return &SelectionHandler{
		store:  store,
		logger: log,
	}
}

// GetRecent returns per-day selection counts for the last N days
// GET /api/selections/recent?days=7
func (h *SelectionHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid 'days' parameter")
			return
		}
		days = parsed
	}

	counts, err := h.store.RecentCounts(r.Context(), days)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent counts")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recent counts")
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

// GetSelection returns the instrument list selected on a date
// GET /api/selections/{date}
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}

	codes, err := h.store.Selection(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get selection")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve selection")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date.Format(dateFormat),
		"codes": codes,
	})
}

// GetBands returns the retracement bands recorded for a date
// GET /api/bands/{date}
func (h *SelectionHandler) GetBands(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, mux.Vars(r)["date"])
	if !ok {
		return
	}

	bands, err := h.store.Bands(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get bands")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve bands")
		return
	}

	respondJSON(w, http.StatusOK, bands)
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	date, err := time.Parse(dateFormat, raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
