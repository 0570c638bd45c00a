package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/importer"
)

const (
	maxJSONBody     = 1 << 20
	maxMemoryUpload = 32 << 20
	defaultMaxBody  = 100 << 20
)

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body: %w", core.ErrFileTooLarge)
		}
		return fmt.Errorf("%w: request body: %v", core.ErrInvalidInput, err)
	}
	return nil
}

// parseUpload parses a multipart form within the body size limit.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	limit := s.cfg.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			return fmt.Errorf("upload: %w", core.ErrFileTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return fmt.Errorf("upload: %w", core.ErrNoFile)
		default:
			return fmt.Errorf("%w: upload: %v", core.ErrInvalidInput, err)
		}
	}
	return nil
}

// formSources returns the files uploaded under field. It must follow a
// successful parseUpload.
func formSources(r *http.Request, field string) []importer.Source {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File[field]
	out := make([]importer.Source, 0, len(headers))
	for _, fh := range headers {
		out = append(out, fileSource(fh))
	}
	return out
}

// formSource returns the first file under field. A missing file yields a
// Source without Open, which the service reports as core.ErrNoFile.
func formSource(r *http.Request, field string) importer.Source {
	if srcs := formSources(r, field); len(srcs) > 0 {
		return srcs[0]
	}
	return importer.Source{Name: field}
}

func fileSource(fh *multipart.FileHeader) importer.Source {
	return importer.Source{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// sendArtifact writes an export as a download.
func sendArtifact(w http.ResponseWriter, a *core.Artifact) error {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("X-Record-Count", strconv.Itoa(a.Count))
	w.WriteHeader(http.StatusOK)
	_, err := a.WriteTo(w)
	return err
}

// queryInt reads an optional positive integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", core.ErrInvalidInput, name)
	}
	return n, nil
}
