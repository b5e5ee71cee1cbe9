package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trading-journal/internal/journal"
	"trading-journal/internal/models"
	"trading-journal/internal/stats"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	svc     *journal.Service
	started time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *journal.Service) *APIHandler {
	return &APIHandler{log: log.Named("api"), svc: svc, started: svc.Now()}
}

// Routes registers every endpoint on a new mux.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", h.StatusHandler)
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("POST /api/trades", h.AddTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", h.DeleteTradeHandler)
	mux.HandleFunc("GET /api/statistics", h.StatisticsHandler)
	mux.HandleFunc("GET /api/series", h.SeriesHandler)
	mux.HandleFunc("GET /api/calendar", h.CalendarHandler)
	mux.HandleFunc("GET /api/dashboard", h.DashboardHandler)
	return mux
}

// StatusHandler reports liveness and the active trade source.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	now := h.svc.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"source":     h.svc.SourceName(),
		"start_time": h.started.Format(time.RFC3339),
		"uptime":     now.Sub(h.started).String(),
	})
}

// TradesHandler returns one page of trades, newest first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perPage, err := intParam(r, "per_page", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Page(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, "Failed to get trades", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AddTradeHandler stores a new trade from the JSON body.
func (h *APIHandler) AddTradeHandler(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&trade); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	saved, err := h.svc.AddTrade(r.Context(), trade)
	if err != nil {
		h.fail(w, "Failed to add trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteTradeHandler removes the trade named in the path.
func (h *APIHandler) DeleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	id := models.ID(r.PathValue("id"))
	if err := h.svc.DeleteTrade(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete trade", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Window stats.WindowKind `json:"window"`
	stats.Summary
	DisplayTotalRR float64 `json:"display_total_rr"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	BreakEven      int     `json:"break_even"`
}

// StatisticsHandler returns the summary over the requested window.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summary(r.Context(), win)
	if err != nil {
		h.fail(w, "Failed to calculate statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{
		Window:         win.Kind,
		Summary:        summary,
		DisplayTotalRR: summary.DisplayTotalRR(),
		Wins:           summary.Count(models.ResultWin),
		Losses:         summary.Count(models.ResultLoss),
		BreakEven:      summary.Count(models.ResultBreakEven),
	})
}

// SeriesHandler returns the cumulative R:R series over the requested window.
func (h *APIHandler) SeriesHandler(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(w, r)
	if !ok {
		return
	}
	series, err := h.svc.Series(r.Context(), win)
	if err != nil {
		h.fail(w, "Failed to build series", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":        win.Kind,
		"points":        series,
		"cumulative_rr": series.Last(),
	})
}

// CalendarHandler returns the calendar of ?month=YYYY-MM, the current month
// when omitted.
func (h *APIHandler) CalendarHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month := h.svc.Now()
	if s := q.Get("month"); s != "" {
		parsed, err := time.ParseInLocation("2006-01", s, h.svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	mode := h.svc.CalendarMode()
	if s := q.Get("mode"); s != "" {
		var err error
		if mode, err = stats.ParseCalendarMode(s); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	view, err := h.svc.Calendar(r.Context(), month.Year(), month.Month(), mode)
	if err != nil {
		h.fail(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DashboardHandler returns every widget in one response.
func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(w, r)
	if !ok {
		return
	}
	dashboard, err := h.svc.Dashboard(r.Context(), win)
	if err != nil {
		h.fail(w, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// window parses the window selector, answering 400 when it is invalid.
func (h *APIHandler) window(w http.ResponseWriter, r *http.Request) (stats.Window, bool) {
	q := r.URL.Query()
	win, err := stats.ParseWindow(q.Get("window"), q.Get("start"), q.Get("end"), h.svc.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return stats.Window{}, false
	}
	if win.Kind == "" {
		win.Kind = stats.WindowAll
	}
	return win, true
}

// fail maps a service error to a status. Unexpected errors are logged and
// hidden from the client.
func (h *APIHandler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, journal.ErrInvalidTrade):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
