package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/tend/internal/export"
	"github.com/kalambet/tend/internal/roster"
	"github.com/kalambet/tend/internal/schedule"
	"github.com/kalambet/tend/internal/storage"
)

// Calendar dates cross the wire as YYYY-MM-DD strings, matching how the
// store keeps them.

type contactRequest struct {
	Name     string `json:"name"`
	Cadence  string `json:"cadence"`
	Notes    string `json:"notes"`
	Birthday string `json:"birthday"`
}

type contactJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cadence  string `json:"cadence"`
	Notes    string `json:"notes,omitempty"`
	Birthday string `json:"birthday,omitempty"`
	NextDue  string `json:"next_due"`
	Version  int64  `json:"version"`
}

type contactViewJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cadence     string `json:"cadence"`
	Notes       string `json:"notes,omitempty"`
	Birthday    string `json:"birthday,omitempty"`
	NextDue     string `json:"next_due"`
	DaysOverdue int    `json:"days_overdue"`
	Overdue     bool   `json:"overdue"`
}

func toContactJSON(c storage.Contact) contactJSON {
	out := contactJSON{
		ID:      c.ID,
		Name:    c.Name,
		Cadence: string(c.Cadence),
		Notes:   c.Notes,
		NextDue: c.NextDue.Format(time.DateOnly),
		Version: c.Version,
	}
	if c.Birthday != nil {
		out.Birthday = c.Birthday.Format(time.DateOnly)
	}
	return out
}

func toViewJSON(views []roster.ContactView) []contactViewJSON {
	out := make([]contactViewJSON, len(views))
	for i, v := range views {
		out[i] = contactViewJSON{
			ID:          v.ID,
			Name:        v.Name,
			Cadence:     string(v.Cadence),
			Notes:       v.Notes,
			NextDue:     v.NextDue.Format(time.DateOnly),
			DaysOverdue: v.DaysOverdue,
			Overdue:     v.Overdue,
		}
		if v.Birthday != nil {
			out[i].Birthday = v.Birthday.Format(time.DateOnly)
		}
	}
	return out
}

func decodeContactRequest(r *http.Request) (roster.NewContact, error) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return roster.NewContact{}, fmt.Errorf("invalid request body: %w", err)
	}
	nc := roster.NewContact{
		Name:    req.Name,
		Cadence: schedule.Cadence(req.Cadence),
		Notes:   req.Notes,
	}
	if req.Birthday != "" {
		b, err := time.Parse(time.DateOnly, req.Birthday)
		if err != nil {
			return roster.NewContact{}, fmt.Errorf("birthday must be a YYYY-MM-DD date: %w", err)
		}
		nc.Birthday = &b
	}
	return nc, nil
}

func handleCreateContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		nc, err := decodeContactRequest(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		c, err := deps.Roster.Create(r.Context(), deps.Owner, nc)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, toContactJSON(c))
	}
}

// handleListDue serves the dashboard's due list. The optional currentDate
// query parameter is a request-scoped simulated date; without it the
// session clock (including any debug override) supplies the reference.
func handleListDue(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := parseDateParam(r, "currentDate")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		views, err := deps.Roster.ListDue(r.Context(), deps.Owner, ref)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, toViewJSON(views))
	}
}

func handleListAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := deps.Roster.ListAll(r.Context(), deps.Owner)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, toViewJSON(views))
	}
}

func handleGetContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Roster.Get(r.Context(), deps.Owner, chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, toContactJSON(c))
	}
}

func handleUpdateContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		nc, err := decodeContactRequest(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		c, err := deps.Roster.Update(r.Context(), deps.Owner, chi.URLParam(r, "id"), nc)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, toContactJSON(c))
	}
}

func handleDeleteContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Roster.Delete(r.Context(), deps.Owner, chi.URLParam(r, "id")); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleExportCalendar(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ListContacts(deps.Owner, storage.ListOptions{Sort: storage.SortByName})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		if err := export.WriteCalendar(w, contacts, deps.Sim.Now()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing calendar: %v", err)
		}
	}
}

func handleExportVCards(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ListContacts(deps.Owner, storage.ListOptions{Sort: storage.SortByName})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
		if err := export.WriteVCards(w, contacts); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing vcards: %v", err)
		}
	}
}

// statsJSON backs the CLI status command.
type statsJSON struct {
	Contacts int `json:"contacts"`
	Due      int `json:"due"`
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var all, due []roster.ContactView
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			all, err = deps.Roster.ListAll(ctx, deps.Owner)
			return err
		})
		g.Go(func() (err error) {
			due, err = deps.Roster.ListDue(ctx, deps.Owner, time.Time{})
			return err
		})
		if err := g.Wait(); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, statsJSON{Contacts: len(all), Due: len(due)})
	}
}
