package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/logging"
)

// handleImportCSV merges the uploaded "file" into the store.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.service.ImportCSV(r.Context(), formSource(r, "file"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handlePreview reports the header mapping of the uploaded "file" for the
// optional "model" form value without importing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.service.PreviewCSV(r.Context(), formSource(r, "file"), r.FormValue("model"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

// handleLoadMaster replaces the store with the uploaded snapshot.
func (s *Server) handleLoadMaster(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := s.service.LoadMaster(r.Context(), formSource(r, "file"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]int{"loaded": n})
}

// handleBuildMaster builds all_records.json from every uploaded "files"
// part.
func (s *Server) handleBuildMaster(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	a, err := s.service.BuildMaster(r.Context(), formSources(r, "files"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.deliver(w, r, a)
}

// handleMerge merges the "delta" upload into the "reference" snapshot.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	a, res, err := s.service.MergeFiles(r.Context(), formSource(r, "reference"), formSource(r, "delta"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("X-Merge-Reference", strconv.Itoa(res.Reference))
	w.Header().Set("X-Merge-Added", strconv.Itoa(res.Added))
	s.deliver(w, r, a)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.ExportModelCSV()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.deliver(w, r, a)
}

// handleExportReport renders the cross-model report as ?format=csv|xlsx.
// A POST with a "file" upload reports on that snapshot instead of the
// store.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseReportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var src importer.Source
	if r.Method == http.MethodPost {
		if err := s.parseUpload(w, r); err != nil {
			s.respondError(w, r, err)
			return
		}
		src = formSource(r, "file")
		if src.Open == nil {
			s.respondError(w, r, core.ErrNoFile)
			return
		}
	}

	a, err := s.service.ExportReport(r.Context(), src, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.deliver(w, r, a)
}

// handleExportDaily downloads the unsynced records and marks them synced
// once the response is written.
func (s *Server) handleExportDaily(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.ExportDaily()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.deliver(w, r, a) {
		return
	}
	if err := s.service.MarkExported(r.Context(), a); err != nil {
		logging.FromContext(r.Context()).Error("mark exported failed", "error", err, "records", a.Count)
	}
}

func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.ExportAll()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.deliver(w, r, a)
}

// deliver sends a and reports whether the whole body was written.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, a *core.Artifact) bool {
	if err := sendArtifact(w, a); err != nil {
		logging.FromContext(r.Context()).Warn("artifact not delivered", "name", a.Name, "error", err)
		return false
	}
	return true
}
