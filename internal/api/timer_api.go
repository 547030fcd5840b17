package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/trackd/internal/domain"
)

// ─── Timer endpoints ────────────────────────────────────────────────────────

// --- POST /api/timer/start ---

type startRequest struct {
	TaskID string `json:"task_id"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "task_id is required")
		return
	}

	active, err := s.timers.Start(r.Context(), currentUser(r), req.TaskID, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, active)
}

// --- POST /api/timer/stop ---

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.timers.Stop(r.Context(), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"stopped_count": stopped,
	})
}

// --- POST /api/timer/entries/{entryID}/stop ---

func (s *Server) handleStopByID(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	entry, err := s.timers.StopByID(r.Context(), currentUser(r), entryID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry": entry,
	})
}

// --- GET /api/timer/active ---

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	active, err := s.timers.GetActive(r.Context(), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if active == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"active": nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": active,
	})
}

// --- GET /api/tasks/{taskID}/entries ---

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	entries, err := s.timers.ListHistory(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.TimeEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// --- GET /api/tasks/{taskID}/total ---

func (s *Server) handleTaskTotal(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	total, err := s.timers.TotalForTask(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"accumulated_seconds": total,
	})
}

// writeDomainError maps domain sentinel errors onto HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTimerConflict):
		writeError(w, http.StatusConflict, "conflict", "another timer start race; please retry")
	case errors.Is(err, domain.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEntryForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrEntryClosed):
		writeError(w, http.StatusConflict, "already_closed", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
