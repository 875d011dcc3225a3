package http

import (
	"fmt"
	"net/http"

	"dmo/internal/core"
)

type activityCreateRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type reorderRequest struct {
	ActivityIDs []int64 `json:"activity_ids"`
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload activityCreateRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	activity, err := s.service.CreateActivity(r.Context(), core.ActivityCreate{
		DmoID: dmoID,
		Name:  payload.Name,
		Order: payload.Order,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Listing for an unknown DMO is a 404, not an empty list.
	if _, err := s.service.GetDmo(r.Context(), dmoID); err != nil {
		writeError(w, r, err)
		return
	}

	activities, err := s.service.ListActivities(r.Context(), dmoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleReorderActivities(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload reorderRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	activities, err := s.service.ReorderActivities(r.Context(), dmoID, payload.ActivityIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload core.ActivityUpdate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	activity, err := s.service.UpdateActivity(r.Context(), id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.DeleteActivity(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
