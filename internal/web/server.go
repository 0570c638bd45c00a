// Package web serves the local JSON API over the record store and the
// import/export service, plus a websocket feed of store events.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dryerlog/internal/config"
	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/store"
	"github.com/JonMunkholm/dryerlog/internal/web/middleware"
)

// Server is the API server.
type Server struct {
	service *core.Service
	store   *store.Store
	hub     *Hub
	cfg     config.ServerConfig
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires the router for svc. The event hub starts with Start.
func NewServer(svc *core.Service, cfg config.ServerConfig) *Server {
	s := &Server{
		service: svc,
		store:   svc.Store(),
		hub:     NewHub(svc.Store().Events()),
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(strings.Split(s.cfg.TrustedProxies, ",")))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.RateLimit > 0 {
		s.router.Use(newRateLimiter(s.cfg.RateLimit, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(api chi.Router) {
		// Long-lived; kept out of the compress and timeout middleware.
		api.Get("/events", s.hub.ServeWS)
		api.Group(s.apiRoutes)
	})
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Use(chimw.Compress(5))
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/status", s.handleStatus)
	r.Get("/models", s.handleModels)
	r.Get("/models/{model}/fields", s.handleFields)

	// Records
	r.Get("/records", s.handleCurrentPage)
	r.Get("/records/query", s.handleQuery)
	r.Post("/records", s.handleAddRecord)
	r.Delete("/records", s.handleClearRecords)
	r.Get("/records/{id}", s.handleGetRecord)
	r.Put("/records/{id}", s.handleUpdateRecord)
	r.Delete("/records/{id}", s.handleDeleteRecord)
	r.Post("/records/{id}/edit", s.handleBeginEdit)
	r.Delete("/edit", s.handleCancelEdit)

	// Raw chart
	r.Get("/records/{id}/rawchart", s.handleRawChart)
	r.Post("/records/{id}/rawchart", s.handleAttachRawChart)

	// View state
	r.Get("/view", s.handleGetView)
	r.Put("/view", s.handleSetView)
	r.Get("/filter", s.handleGetFilter)
	r.Put("/filter", s.handleSetFilter)
	r.Post("/sort", s.handleToggleSort)
	r.Post("/page", s.handleChangePage)
	r.Get("/golden", s.handleGetGolden)
	r.Put("/golden", s.handleSetGolden)
	r.Delete("/golden", s.handleClearGolden)
	r.Post("/compare", s.handleCompare)

	// File flows
	r.Post("/import", s.handleImportCSV)
	r.Post("/preview", s.handlePreview)
	r.Post("/load", s.handleLoadMaster)
	r.Post("/build", s.handleBuildMaster)
	r.Post("/merge", s.handleMerge)

	// Exports
	r.Get("/export/csv", s.handleExportCSV)
	r.Get("/export/report", s.handleExportReport)
	r.Post("/export/report", s.handleExportReport)
	r.Get("/export/daily", s.handleExportDaily)
	r.Get("/export/all", s.handleExportAll)
}

// Start serves on cfg.Addr until ctx is cancelled, then shuts down within
// the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	slog.Info("api shutting down")
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window counter per client address. Stale
// entries are swept during requests.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// allow consumes one token for ip.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.window {
		for k, v := range rl.visitors {
			if now.Sub(v.lastReset) > 2*rl.window {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

var rateLimited = core.UserMessage{
	Message: "Too many requests",
	Action:  "Wait a minute and try again",
	Code:    "RATE001",
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, rateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
