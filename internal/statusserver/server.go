package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conductor/internal/audit"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

const (
	requestTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Source is the read side of the orchestrator.
type Source interface {
	RunID() string
	StartedAt() time.Time
	Snapshot() []services.Snapshot
	LastAudit() (time.Time, *audit.Report)
}

// Server serves the status endpoints.
type Server struct {
	addr    string
	source  Source
	handler http.Handler
}

// New builds the router. gatherer may be nil, in which case /metrics is not
// served.
func New(addr string, source Source, gatherer prometheus.Gatherer) *Server {
	s := &Server{addr: addr, source: source}

	r := chi.NewRouter()
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(accessLog)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Get("/services/{name}", s.handleService)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.handler = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("StatusServer", "Listening on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Debug("StatusServer", "Stopped")
	return nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	RunID     string                        `json:"runId"`
	StartedAt time.Time                     `json:"startedAt"`
	Uptime    string                        `json:"uptime"`
	Counts    map[services.ServiceState]int `json:"counts"`
	Services  []services.Snapshot           `json:"services"`
	LastAudit *AuditStatus                  `json:"lastAudit,omitempty"`
}

// AuditStatus is the last successful audit.
type AuditStatus struct {
	At     time.Time    `json:"at"`
	Report audit.Report `json:"report"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snaps := s.source.Snapshot()
	resp := StatusResponse{
		RunID:     s.source.RunID(),
		StartedAt: s.source.StartedAt(),
		Counts:    make(map[services.ServiceState]int),
		Services:  snaps,
	}
	if !resp.StartedAt.IsZero() {
		resp.Uptime = time.Since(resp.StartedAt).Round(time.Second).String()
	}
	for _, snap := range snaps {
		resp.Counts[snap.State]++
	}
	if at, report := s.source.LastAudit(); report != nil {
		resp.LastAudit = &AuditStatus{At: at, Report: *report}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, snap := range s.source.Snapshot() {
		if snap.Name == name {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown service " + name})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.Error("StatusServer", err, "Failed to encode response")
	}
}
