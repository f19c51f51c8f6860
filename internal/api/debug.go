package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Debug clock endpoints let a caller simulate the passage of time for this
// server's session: schedule computation, overdue classification and
// check-in recording all observe the simulated date until it is reset.

type clockRequest struct {
	// Date pins the simulated date (YYYY-MM-DD).
	Date string `json:"date"`
	// AdvanceDays moves the simulated date forward instead; used by the
	// +1 day / +1 week style debug controls.
	AdvanceDays int `json:"advance_days"`
}

type clockJSON struct {
	Today     string `json:"today"`
	Simulated bool   `json:"simulated"`
}

func currentClock(deps Deps) clockJSON {
	_, active := deps.Sim.Overridden()
	return clockJSON{
		Today:     deps.Sim.Today().Format(time.DateOnly),
		Simulated: active,
	}
}

func handleGetClock(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, currentClock(deps))
	}
}

func handleSetClock(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req clockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		switch {
		case req.Date != "":
			d, err := time.Parse(time.DateOnly, req.Date)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "date must be a YYYY-MM-DD date: %v", err)
				return
			}
			deps.Sim.Set(d)
		case req.AdvanceDays != 0:
			deps.Sim.Advance(req.AdvanceDays)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of date or advance_days is required")
			return
		}

		writeJSON(w, currentClock(deps))
	}
}

func handleResetClock(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sim.Reset()
		writeJSON(w, currentClock(deps))
	}
}
