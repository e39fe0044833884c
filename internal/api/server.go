// Package api provides the diagnostics HTTP server for hwrt.
//
// Routes:
//
//	GET  /                 → Web UI dashboard
//	GET  /static/*         → Static assets
//	GET  /health           → Health check (subsystem readiness)
//	GET  /api/info         → Detected features, FPU format and dispatch table
//	GET  /api/features     → Every tracked feature with detected/enabled state
//	GET  /api/metrics      → JSON metrics snapshot (or SSE stream)
//	GET  /api/selftest     → Run the strategy self-test (?level=vector128)
//	POST /api/selftest     → Same as GET
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/config"
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/kernel"
	"github.com/hartyporpoise/hwrt/internal/selftest"
)

// selftestTimeout bounds a single self-test request.
const selftestTimeout = 30 * time.Second

// Server is the hwrt diagnostics server.
type Server struct {
	cfg     *config.Config
	sub     *kernel.Subsystem
	log     *zap.Logger
	mux     *http.ServeMux
	started time.Time

	// streamInterval is the SSE metrics push period.
	streamInterval time.Duration
}

// NewServer creates a Server with all routes registered. sub should already
// be initialized; an uninitialized subsystem reports itself as not ready.
func NewServer(cfg *config.Config, sub *kernel.Subsystem, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:            cfg,
		sub:            sub,
		log:            log,
		mux:            http.NewServeMux(),
		started:        time.Now(),
		streamInterval: time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves on addr (e.g. "127.0.0.1:8080") until ctx is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
		// ReadHeaderTimeout prevents slow-loris: clients that send headers very
		// slowly would otherwise hold a goroutine open indefinitely.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: the SSE metrics stream stays open.
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("diagnostics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleUI)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles))))

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/info", s.handleInfo)
	s.mux.HandleFunc("/api/features", s.handleFeatures)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/selftest", s.handleSelftest)
}

// writeJSON encodes v with status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// ─────────────────────────────────────────────────────────────────────────
// UI
// ─────────────────────────────────────────────────────────────────────────

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f, err := staticFiles.Open("index.html")
	if err != nil {
		http.Error(w, "UI not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.Copy(w, f)
}

// ─────────────────────────────────────────────────────────────────────────
// Health and info
// ─────────────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if !s.sub.Ready() {
		status, code = "initializing", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sub.Info())
}

type featureView struct {
	Name     string `json:"name"`
	Detected bool   `json:"detected"`
	Enabled  bool   `json:"enabled"`
}

// handleFeatures lists every tracked feature. A feature that is detected but
// not enabled was forced off by configuration.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	reg := s.sub.Registry()
	det, fs := reg.Detected(), reg.Features()
	out := make([]featureView, 0, len(cpu.AllFeatures()))
	for _, f := range cpu.AllFeatures() {
		out = append(out, featureView{Name: f.String(), Detected: det.Has(f), Enabled: fs.Has(f)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ─────────────────────────────────────────────────────────────────────────
// Metrics
// ─────────────────────────────────────────────────────────────────────────

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "text/event-stream" {
		s.streamMetrics(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.sub.Metrics().Snapshot())
}

func (s *Server) streamMetrics(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			data, _ := json.Marshal(s.sub.Metrics().Snapshot())
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────
// Self-test
// ─────────────────────────────────────────────────────────────────────────

type selftestResult struct {
	Level string `json:"level"`
	Op    string `json:"op"`
	Cases int    `json:"cases"`
	Error string `json:"error,omitempty"`
}

type selftestResponse struct {
	Passed     bool             `json:"passed"`
	Cases      int              `json:"cases"`
	DurationMs float64          `json:"duration_ms"`
	Results    []selftestResult `json:"results"`
}

// handleSelftest runs the strategy self-test. The optional level query
// parameter is a comma-separated list of level names.
func (s *Server) handleSelftest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var levels []bulk.Level
	if q := r.URL.Query().Get("level"); q != "" {
		for _, name := range strings.Split(q, ",") {
			l, err := bulk.ParseLevel(strings.TrimSpace(name))
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			levels = append(levels, l)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), selftestTimeout)
	defer cancel()
	rep, err := selftest.Run(ctx, levels...)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	resp := selftestResponse{
		Passed:     rep.Err() == nil,
		Cases:      rep.Cases(),
		DurationMs: float64(rep.Duration.Microseconds()) / 1000,
		Results:    make([]selftestResult, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		v := selftestResult{Level: res.Level.String(), Op: res.Op.String(), Cases: res.Cases}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, v)
	}
	if !resp.Passed {
		s.log.Error("selftest failed", zap.Error(rep.Err()))
	}
	writeJSON(w, http.StatusOK, resp)
}
