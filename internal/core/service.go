package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/dryerlog/internal/config"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/record"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// Options bounds file processing.
type Options struct {
	MaxFileSize   int64         // bytes per file; 0 disables the limit
	MaxConcurrent int           // parses in flight, and files per batch
	MaxWait       time.Duration // wait for a parse slot
	Timeout       time.Duration // per operation; 0 disables
}

// OptionsFromConfig maps the import configuration.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		MaxFileSize:   cfg.MaxFileSize,
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWaitTime,
		Timeout:       cfg.Timeout,
	}
}

// Service runs the file flows (import, load, build, merge, export) against
// a record store.
type Service struct {
	store   *store.Store
	catalog *schema.Catalog
	parser  *importer.Parser
	limiter *ParseLimiter
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now for file names.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService returns a service for st.
func NewService(st *store.Store, opts Options, options ...ServiceOption) *Service {
	s := &Service{
		store:   st,
		catalog: st.Catalog(),
		parser:  importer.NewParser(st.Catalog()),
		limiter: NewParseLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:    opts,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	s.log = s.log.With("component", "core")
	return s
}

// Store returns the record store.
func (s *Service) Store() *store.Store { return s.store }

// Limiter returns the parse limiter.
func (s *Service) Limiter() *ParseLimiter { return s.limiter }

// Artifact is a rendered export file.
type Artifact struct {
	Name        string
	ContentType string
	Count       int      // records written
	IDs         []string // set by ExportDaily
	Data        []byte
}

// WriteTo writes the file content to w.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Service) notify(level store.Level, text string) {
	s.store.Events().Publish(store.Notice{Level: level, Text: text})
}

// fail publishes the user message of err as an error notice.
func (s *Service) fail(op string, err error) {
	if isCancel(err) {
		s.log.Warn(op+" stopped", "error", err)
	} else {
		s.log.Error(op+" failed", "error", err)
	}
	s.notify(store.LevelError, fmt.Sprintf("%s failed: %s", op, MapError(err).Message))
}

// begin takes a parse slot and applies the operation timeout. The returned
// func releases both.
func (s *Service) begin(ctx context.Context) (context.Context, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	var cancel context.CancelFunc
	if s.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	return ctx, func() {
		cancel()
		s.limiter.Release()
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// limited caps the bytes read from src at the configured file size.
func (s *Service) limited(src importer.Source) importer.Source {
	open, max := src.Open, s.opts.MaxFileSize
	return importer.Source{
		Name: src.Name,
		Open: func() (io.ReadCloser, error) {
			rc, err := open()
			if err != nil {
				return nil, err
			}
			return readCloser{Reader: importer.LimitReader(rc, max), Closer: rc}, nil
		},
	}
}

func (s *Service) open(src importer.Source) (io.ReadCloser, error) {
	if src.Open == nil {
		return nil, ErrNoFile
	}
	return s.limited(src).Open()
}

// decode reads a JSON snapshot and canonicalizes its records.
func (s *Service) decode(src importer.Source) ([]record.Record, error) {
	rc, err := s.open(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	recs, err := importer.DecodeSnapshot(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, parseError(err))
	}
	for _, r := range recs {
		r.Canonicalize()
	}
	return recs, nil
}

// render runs an export writer into memory.
func render(recs []record.Record, write func(io.Writer, []record.Record) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, recs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
