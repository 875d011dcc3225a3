package http

import (
	"fmt"
	"net/http"

	"dmo/internal/core"
)

type completionRequest struct {
	Date      core.Date `json:"date"`
	Completed bool      `json:"completed"`
	Note      *string   `json:"note"`
}

func (s *Server) handleSetCompletion(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload completionRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}
	if payload.Date.IsZero() {
		writeError(w, r, fmt.Errorf("%w: missing date", core.ErrValidation))
		return
	}

	var rec core.Completion
	if payload.Completed {
		rec, err = s.service.MarkComplete(r.Context(), dmoID, payload.Date, payload.Note)
	} else {
		rec, err = s.service.MarkIncomplete(r.Context(), dmoID, payload.Date, payload.Note)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(dmoID, payload.Date)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetCompletion(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	day, err := pathDate(r, "date")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.service.GetCompletion(r.Context(), dmoID, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, r, &core.CompletionNotFoundError{DmoID: dmoID, Date: day})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := requiredQueryDate(r, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := requiredQueryDate(r, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := s.service.ListCompletions(r.Context(), dmoID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
