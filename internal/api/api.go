// Package api is the HTTP adapter over the check-in engine. It translates
// JSON requests into roster and recorder calls and maps engine errors onto
// status codes; no scheduling logic lives here.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/tend/internal/checkin"
	"github.com/kalambet/tend/internal/clock"
	"github.com/kalambet/tend/internal/roster"
	"github.com/kalambet/tend/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the collaborators the HTTP layer serves.
type Deps struct {
	Roster   *roster.Service
	Recorder *checkin.Recorder
	Store    *storage.Store
	// Sim is the debug clock for this server's session; the same instance
	// must back Roster and Recorder so a simulated date is observed
	// end-to-end.
	Sim *clock.Simulator
	// Owner scopes every request; tend serves a single owner per daemon.
	Owner string
	Token string
}

// NewHandler returns the full HTTP API. Everything except /health requires
// the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/contacts", handleCreateContact(deps))
		r.Get("/contacts", handleListDue(deps))
		r.Get("/contacts/all", handleListAll(deps))
		r.Get("/contacts/{id}", handleGetContact(deps))
		r.Put("/contacts/{id}", handleUpdateContact(deps))
		r.Delete("/contacts/{id}", handleDeleteContact(deps))

		r.Post("/interactions", handleRecordInteraction(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Post("/contacts/{id}/advance", handleAdvanceSchedule(deps))

		r.Get("/export/calendar.ics", handleExportCalendar(deps))
		r.Get("/export/contacts.vcf", handleExportVCards(deps))

		r.Get("/stats", handleStats(deps))

		r.Get("/debug/clock", handleGetClock(deps))
		r.Put("/debug/clock", handleSetClock(deps))
		r.Delete("/debug/clock", handleResetClock(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
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

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// invalid argument 400, not found 404, conflict 409, partial failure 502,
// anything else (storage unavailable) 503.
func writeEngineError(w http.ResponseWriter, err error) {
	var pf *checkin.PartialFailure

	switch {
	case errors.Is(err, checkin.ErrInvalidArgument), errors.Is(err, roster.ErrInvalidArgument):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "contact not found")
	case errors.As(err, &pf) && !errors.Is(err, storage.ErrConflict):
		// Interaction logged, schedule not advanced. Recoverable: retry the
		// advance step via POST /contacts/{id}/advance.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message":        pf.Error(),
				"type":           "partial_failure",
				"interaction_id": pf.Interaction.ID,
			},
		})
	case errors.Is(err, storage.ErrConflict):
		httpError(w, http.StatusConflict, "conflict_error", "%v", err)
	default:
		httpError(w, http.StatusServiceUnavailable, "unavailable_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

// parseDateParam reads a YYYY-MM-DD query parameter. A zero time and nil
// error means the parameter was absent.
func parseDateParam(r *http.Request, key string) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date: %w", key, err)
	}
	return d, nil
}
