package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/tend/internal/storage"
)

type recordRequest struct {
	ContactID string `json:"contact_id"`
	Summary   string `json:"summary"`
}

type interactionJSON struct {
	ID         string `json:"id"`
	ContactID  string `json:"contact_id"`
	Summary    string `json:"summary"`
	OccurredAt string `json:"occurred_at"`
}

func toInteractionJSON(i storage.Interaction) interactionJSON {
	return interactionJSON{
		ID:         i.ID,
		ContactID:  i.ContactID,
		Summary:    i.Summary,
		OccurredAt: i.OccurredAt.UTC().Format(time.RFC3339),
	}
}

// handleRecordInteraction completes a check-in: it logs the interaction and
// advances the contact's schedule. An omitted summary is stored as the
// empty string.
func handleRecordInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Recorder.Record(r.Context(), deps.Owner, req.ContactID, req.Summary)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, map[string]any{
			"interaction": toInteractionJSON(res.Interaction),
			"contact":     toContactJSON(res.Contact),
		})
	}
}

// handleAdvanceSchedule retries the schedule-advance step after a partial
// failure, without logging a second interaction.
func handleAdvanceSchedule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Recorder.AdvanceSchedule(r.Context(), deps.Owner, chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, toContactJSON(c))
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		contactID := r.URL.Query().Get("contact_id")

		interactions, err := deps.Store.ListInteractions(deps.Owner, contactID, limit)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		out := make([]interactionJSON, len(interactions))
		for i, in := range interactions {
			out[i] = toInteractionJSON(in)
		}
		writeJSON(w, out)
	}
}
