// Package server exposes the Podium coaching pipeline over HTTP and
// WebSocket.
//
// One WebSocket connection carries one coaching session: the client streams
// video_frame and audio_chunk messages and pulls score_request and
// feedback_request on its own cadence; the server answers with score_update,
// game_update, voice_update, feedback, achievement, and finally
// session_summary frames. Alongside the session endpoint the server serves
// /healthz, /readyz, /metrics, and a read-only summary lookup.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/podiumlabs/podium/internal/coach"
	"github.com/podiumlabs/podium/internal/health"
	"github.com/podiumlabs/podium/internal/observe"
	"github.com/podiumlabs/podium/internal/store"
	"github.com/podiumlabs/podium/pkg/provider/stt"
)

// Default server timeouts.
const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
)

// Config configures a [Server].
type Config struct {
	// ListenAddr is the TCP address to listen on (e.g., ":8080").
	ListenAddr string

	// Manager is the session registry. Required.
	Manager *coach.Manager

	// Transcriber converts audio chunks to text. Optional; without one,
	// clients must send their own transcript segments and content scoring
	// degrades to no-data.
	Transcriber stt.Transcriber

	// Store persists session data. Optional.
	Store store.Store

	// Health serves /healthz and /readyz. Optional; when nil a handler with
	// no checkers is used.
	Health *health.Handler

	// DefaultDifficulty is used when a client does not specify one.
	DefaultDifficulty string

	// OriginPatterns is passed to the WebSocket accept options. Empty means
	// same-origin only.
	OriginPatterns []string

	// Metrics overrides the observability instruments.
	Metrics *observe.Metrics
}

// Server is the Podium HTTP/WebSocket server.
type Server struct {
	httpSrv *http.Server

	manager           *coach.Manager
	transcriber       stt.Transcriber
	store             store.Store
	defaultDifficulty string
	originPatterns    []string
	met               *observe.Metrics
}

// New creates a Server with all routes registered.
func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("server: manager is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = "beginner"
	}
	if cfg.Health == nil {
		cfg.Health = health.New("podium", "")
	}
	met := cfg.Metrics
	if met == nil {
		met = observe.DefaultMetrics()
	}

	s := &Server{
		manager:           cfg.Manager,
		transcriber:       cfg.Transcriber,
		store:             cfg.Store,
		defaultDifficulty: cfg.DefaultDifficulty,
		originPatterns:    cfg.OriginPatterns,
		met:               met,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("GET /v1/sessions/{id}/summary", s.handleSummaryLookup)
	mux.Handle("GET /metrics", promhttp.Handler())
	cfg.Health.Register(mux)

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(met)(mux),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	return s, nil
}

// Run starts listening and blocks until ctx is cancelled, then shuts the
// server down gracefully. The optional cert and key paths enable TLS.
func (s *Server) Run(ctx context.Context, certFile, keyFile string) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = s.httpSrv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen on %s: %w", s.httpSrv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// handleSummaryLookup serves a persisted session summary as JSON.
func (s *Server) handleSummaryLookup(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"persistence not configured"}`, http.StatusNotImplemented)
		return
	}

	id := r.PathValue("id")
	sum, err := s.store.GetSummary(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"summary not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("summary lookup failed", "session_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	resp := map[string]any{
		"session_id":        sum.SessionID,
		"avg_score":         sum.AvgScore,
		"max_combo":         sum.MaxCombo,
		"total_xp":          sum.TotalXP,
		"improvement_trend": sum.Trend,
		"duration_seconds":  sum.DurationSeconds,
		"word_count":        sum.WordCount,
		"summary_text":      sum.SummaryText,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		observe.Logger(r.Context()).Warn("summary encode failed", "session_id", id, "error", err)
	}
}
