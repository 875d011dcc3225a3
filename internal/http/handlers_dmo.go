package http

import (
	"fmt"
	"net/http"

	"dmo/internal/core"
)

func (s *Server) handleCreateDmo(w http.ResponseWriter, r *http.Request) {
	var payload core.DmoCreate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	dmo, err := s.service.CreateDmo(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dmo)
}

func (s *Server) handleListDmos(w http.ResponseWriter, r *http.Request) {
	dmos, err := s.service.ListDmos(r.Context(), queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dmos)
}

func (s *Server) handleGetDmo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	dmo, err := s.service.GetDmo(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dmo)
}

func (s *Server) handleUpdateDmo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload core.DmoUpdate
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	dmo, err := s.service.UpdateDmo(r.Context(), id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dmo)
}

func (s *Server) handleDeleteDmo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.DeleteDmo(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleActivateDmo(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, true)
}

func (s *Server) handleDeactivateDmo(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, false)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var dmo core.Dmo
	if active {
		dmo, err = s.service.Activate(r.Context(), id)
	} else {
		dmo, err = s.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dmo)
}
