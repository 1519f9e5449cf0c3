package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracklab/stocktrack/internal/history"
)

// PollKicker triggers an immediate poll cycle.
type PollKicker interface {
	Kick()
}

type AppDeps struct {
	Store  *history.Store
	Poller PollKicker
	Token  string
	Now    func() time.Time // nil means time.Now
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/history/total", handleHistoryTotal(deps))
		r.Get("/history/category/{name}", handleHistoryCategory(deps))
		r.Get("/history/entity/{sku}", handleHistoryEntity(deps))
		r.Get("/events", handleEvents(deps))
		r.Get("/snapshot/latest", handleLatestSnapshot(deps))
		r.Post("/poll", handlePoll(deps))
	})

	return r
}

// window parses the optional ?days=N query parameter. Absent or zero means
// all retained history.
func window(r *http.Request, now time.Time) (history.Window, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return history.AllTime(), nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return history.Window{}, fmt.Errorf("days must be a non-negative integer, got %q", raw)
	}
	if days == 0 {
		return history.AllTime(), nil
	}
	return history.LastDays(days, now), nil
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Store.Len()
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "history store unavailable: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"snapshots": n,
		})
	}
}

func handleHistoryTotal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, err := window(r, deps.Now())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"view":   "total",
			"points": pointsOrEmpty(deps.Store.QueryPoints(history.TotalView(), win)),
		})
	}
}

func handleHistoryCategory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		win, err := window(r, deps.Now())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"view":     "category",
			"category": name,
			"points":   pointsOrEmpty(deps.Store.QueryPoints(history.CategoryView(name), win)),
		})
	}
}

func handleHistoryEntity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku := chi.URLParam(r, "sku")
		win, err := window(r, deps.Now())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		summary, ok := deps.Store.SummarizeEntity(sku, win)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no history for SKU %q in window", sku)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading events: %v", err)
			return
		}
		if events == nil {
			events = []history.UpdateEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}

func handleLatestSnapshot(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok, err := deps.Store.Latest()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading snapshot: %v", err)
			return
		}
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no snapshots recorded yet")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handlePoll(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Poller == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "polling is not running")
			return
		}
		deps.Poller.Kick()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "poll requested",
		})
	}
}

func pointsOrEmpty(points []history.Point) []history.Point {
	if points == nil {
		return []history.Point{}
	}
	return points
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
