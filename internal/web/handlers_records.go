package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// StatusResponse reports the store size and import capacity.
type StatusResponse struct {
	Records  int                `json:"records"`
	Unsynced int                `json:"unsynced"`
	View     store.View         `json:"view"`
	Imports  core.LimiterStatus `json:"imports"`
	Clients  int                `json:"clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{
		Records:  s.store.Len(),
		Unsynced: len(s.store.Unsynced()),
		View:     s.store.View(),
		Imports:  s.service.Limiter().Status(),
		Clients:  s.hub.ClientCount(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	cat := s.store.Catalog()
	writeJSON(w, map[string]any{
		"models":  cat.Models(),
		"default": cat.DefaultModel(),
	})
}

// FieldResponse describes one table column of a model.
type FieldResponse struct {
	ID         string `json:"id"`
	DataKey    string `json:"dataKey"`
	Header     string `json:"header"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Required   bool   `json:"required,omitempty"`
	Calculated bool   `json:"calculated,omitempty"`
}

// handleFields lists the exported columns of a model, for ?recordType= or
// the active category.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	cat := s.store.Catalog()
	model := record.NormalizeModel(chi.URLParam(r, "model"))
	if !cat.Supported(model) {
		s.respondError(w, r, fmt.Errorf("%w: model %q", core.ErrInvalidInput, model))
		return
	}
	category := s.store.View().Category
	if v := r.URL.Query().Get("recordType"); v != "" {
		category = record.NormalizeCategory(v)
	}

	descs := cat.TableFields(model, category)
	out := make([]FieldResponse, 0, len(descs))
	for _, d := range descs {
		out = append(out, FieldResponse{
			ID:         d.ID,
			DataKey:    d.DataKey.String(),
			Header:     d.Header(),
			Label:      d.Label,
			Type:       d.Type.String(),
			Required:   d.Required,
			Calculated: d.Calculated,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleCurrentPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Current())
}

// handleQuery serves one page for an explicit view, filter and sort
// without touching the active view state.
//
// Parameters: recordType, dryerModel, page, sort, direction, rtoStatus,
// heatingStatus, remark, startDate, endDate, field, min, max.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page, err := s.store.Query(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) parseQuery(r *http.Request) (store.Query, error) {
	v := r.URL.Query()
	q := store.Query{View: s.store.View(), Sort: store.DefaultSort}

	if c := v.Get("recordType"); c != "" {
		q.View.Category = record.NormalizeCategory(c)
		if !q.View.Category.Valid() {
			return q, fmt.Errorf("%w: record type %q", core.ErrInvalidInput, c)
		}
	}
	if m := v.Get("dryerModel"); m != "" {
		q.View.Model = m
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		return q, err
	}
	q.Page = page

	if key := v.Get("sort"); key != "" {
		q.Sort = store.Sort{Key: key, Direction: store.Desc}
	}
	if d := v.Get("direction"); d != "" {
		q.Sort.Direction = store.Direction(strings.ToLower(d))
	}

	if q.Filter.RTOStatus, err = parseFlag("rtoStatus", v.Get("rtoStatus")); err != nil {
		return q, err
	}
	if q.Filter.HeatingStatus, err = parseFlag("heatingStatus", v.Get("heatingStatus")); err != nil {
		return q, err
	}
	q.Filter.Remark = v.Get("remark")
	q.Filter.StartDate = v.Get("startDate")
	q.Filter.EndDate = v.Get("endDate")
	q.Filter.Field = v.Get("field")
	q.Filter.Min = v.Get("min")
	q.Filter.Max = v.Get("max")
	return q, nil
}

func parseFlag(name, v string) (record.Flag, error) {
	switch strings.ToLower(v) {
	case "", "all", "unset":
		return record.FlagUnset, nil
	case "yes":
		return record.FlagYes, nil
	case "no":
		return record.FlagNo, nil
	}
	return record.FlagUnset, fmt.Errorf("%w: %s must be yes or no", core.ErrInvalidInput, name)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := s.store.Add(r.Context(), rec)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

// handleUpdateRecord shallow-merges the body over the stored record.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		s.respondError(w, r, err)
		return
	}
	if rec == nil {
		rec = record.Record{}
	}
	rec.SetID(chi.URLParam(r, "id"))

	out, err := s.store.Update(r.Context(), rec)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.BeginEdit(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.store.CancelEdit()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRawChart(w http.ResponseWriter, r *http.Request) {
	plot, err := s.service.RawChartPlot(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, plot)
}

// handleAttachRawChart attaches the uploaded "file" to the record.
func (s *Server) handleAttachRawChart(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	chart, err := s.service.AttachRawChart(r.Context(), chi.URLParam(r, "id"), formSource(r, "file"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"channels": chart.Channels(),
		"rows":     len(chart.Rows),
		"errors":   chart.Errors,
	})
}
