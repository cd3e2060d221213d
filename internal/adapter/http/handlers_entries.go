package adapthttp

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"diary/internal/app"
	"diary/internal/domain"
)

var errBadDay = errors.New("date must be a YYYY-MM-DD day")

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		start, end := q.Get("start"), q.Get("end")
		var (
			items []domain.HeadacheEntry
			err   error
		)
		if start == "" && end == "" {
			items, err = s.entries.List(ctx)
		} else {
			if !domain.ValidDay(start) || !domain.ValidDay(end) {
				writeError(w, http.StatusBadRequest, errors.New("start and end must both be YYYY-MM-DD days"))
				return
			}
			items, err = s.entries.ListInRange(ctx, start, end)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var body domain.HeadacheEntry
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.saveEntry(w, r, body)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		entry, err := s.entries.Get(ctx, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entry == nil {
			writeError(w, http.StatusNotFound, errors.New("entry not found"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entry": entry})

	case http.MethodPut:
		var body domain.HeadacheEntry
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if body.ID != "" && body.ID != id {
			writeError(w, http.StatusBadRequest, errors.New("id in body does not match path"))
			return
		}
		body.ID = id
		s.saveEntry(w, r, body)

	case http.MethodDelete:
		if err := s.entries.Delete(ctx, id); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) saveEntry(w http.ResponseWriter, r *http.Request, e domain.HeadacheEntry) {
	if !domain.ValidDay(e.Date) {
		writeError(w, http.StatusBadRequest, errBadDay)
		return
	}
	saved, err := s.entries.Save(r.Context(), e)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": saved})
}

func (s *Server) handleEntryByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	day := r.PathValue("date")
	if !domain.ValidDay(day) {
		writeError(w, http.StatusBadRequest, errBadDay)
		return
	}
	entry, err := s.entries.GetByDate(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, errors.New("no entry on "+day))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	today, entry, err := s.entries.GetToday(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"today": today, "entry": entry})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := r.URL.Query().Get("start")
	if start == "" {
		start = domain.Today()
	}
	if !domain.ValidDay(start) {
		writeError(w, http.StatusBadRequest, errBadDay)
		return
	}
	days := intQuery(r, "days", 7)

	cells, err := s.calendar.GetDays(r.Context(), start, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "days": cells, "max": app.MaxCalendarDays})
}

func (s *Server) handlePainColor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scale, err := strconv.ParseFloat(r.URL.Query().Get("scale"), 64)
	if err != nil || math.IsNaN(scale) || math.IsInf(scale, 0) {
		writeError(w, http.StatusBadRequest, errors.New("scale must be a number"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scale": scale, "color": domain.PainColor(scale)})
}
