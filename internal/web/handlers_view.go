package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// ViewResponse is the active view state with its current page.
type ViewResponse struct {
	View   store.View   `json:"view"`
	Filter store.Filter `json:"filter"`
	Page   store.Page   `json:"page"`
}

func (s *Server) viewState() ViewResponse {
	return ViewResponse{
		View:   s.store.View(),
		Filter: s.store.Filter(),
		Page:   s.store.Current(),
	}
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.viewState())
}

// handleSetView switches category and model and returns to page 1.
func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var v store.View
	if err := decodeJSON(w, r, &v); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.SetView(r.Context(), v); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.viewState())
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Filter())
}

// handleSetFilter replaces the whole filter; omitted fields stop filtering.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var f store.Filter
	if err := decodeJSON(w, r, &f); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.ApplyFilters(f); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.viewState())
}

type sortRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.store.ToggleSort(req.Key); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.store.Current())
}

type pageRequest struct {
	Page int `json:"page"`
}

func (s *Server) handleChangePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.store.ChangePage(req.Page) {
		s.respondError(w, r, fmt.Errorf("%w: page %d out of range", core.ErrInvalidInput, req.Page))
		return
	}
	writeJSON(w, s.store.Current())
}

type goldenRequest struct {
	ID string `json:"id"`
}

type goldenResponse struct {
	ID string `json:"goldenBatchId"`
}

func (s *Server) handleGetGolden(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, goldenResponse{ID: s.store.GoldenBatch()})
}

// handleSetGolden toggles the golden batch of the active model; sending
// the current id again clears it.
func (s *Server) handleSetGolden(w http.ResponseWriter, r *http.Request) {
	var req goldenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := s.store.SetGoldenBatch(r.Context(), req.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, goldenResponse{ID: id})
}

func (s *Server) handleClearGolden(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearGoldenBatch(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type compareRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	cmp, err := s.store.Compare(req.IDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, cmp)
}
