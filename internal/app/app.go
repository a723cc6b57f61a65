// Package app wires all Podium subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the server and the session reaper, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithFacialAnalyzer, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/podiumlabs/podium/internal/coach"
	"github.com/podiumlabs/podium/internal/config"
	"github.com/podiumlabs/podium/internal/health"
	"github.com/podiumlabs/podium/internal/resilience"
	"github.com/podiumlabs/podium/internal/server"
	"github.com/podiumlabs/podium/internal/store"
	storepg "github.com/podiumlabs/podium/internal/store/postgres"
	"github.com/podiumlabs/podium/pkg/provider/facial"
	"github.com/podiumlabs/podium/pkg/provider/llm"
	"github.com/podiumlabs/podium/pkg/provider/stt"
	voicebasic "github.com/podiumlabs/podium/pkg/provider/voice/basic"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	// LLM is the primary coach backend.
	LLM llm.Provider

	// LLMFallbacks are tried in order when the primary fails.
	LLMFallbacks []llm.Provider

	// STT transcribes audio chunks.
	STT stt.Transcriber

	// Facial analyzes video frames. Required unless injected via
	// WithFacialAnalyzer.
	Facial facial.Analyzer
}

// App owns all subsystem lifetimes for the Podium coaching server.
type App struct {
	cfg       *config.Config
	providers *Providers

	// sessionCfg holds the tunables applied to new sessions. Hot-reloadable
	// via ApplySessionConfig; sessions in flight keep the values they
	// started with.
	sessionMu  sync.RWMutex
	sessionCfg config.SessionConfig

	// Subsystems — initialised in New, torn down in Shutdown.
	store   store.Store
	facial  facial.Analyzer
	coachP  llm.Provider
	manager *coach.Manager
	server  *server.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a session store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithFacialAnalyzer injects a facial analyzer instead of creating the
// remote one from config.
func WithFacialAnalyzer(an facial.Analyzer) Option {
	return func(a *App) { a.facial = an }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:        cfg,
		providers:  providers,
		sessionCfg: cfg.Session,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initFacial(); err != nil {
		return nil, fmt.Errorf("app: init facial analyzer: %w", err)
	}
	a.initCoach()
	if err := a.initManager(); err != nil {
		return nil, fmt.Errorf("app: init session manager: %w", err)
	}
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects the PostgreSQL store when a DSN is configured. Without
// one, sessions run without persistence.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured; sessions will not be persisted")
		return nil
	}

	st, err := storepg.New(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, func() error {
		st.Close()
		return nil
	})
	return nil
}

// initFacial wraps the configured facial analyzer in a circuit breaker so a
// dead vision service fails fast instead of adding a full request timeout to
// every frame.
func (a *App) initFacial() error {
	if a.facial != nil {
		return nil
	}
	if a.providers.Facial == nil {
		return fmt.Errorf("providers.facial is required")
	}
	a.facial = resilience.NewFacialFallback(a.providers.Facial, a.cfg.Providers.Facial.Name, resilience.FallbackConfig{})
	return nil
}

// initCoach assembles the coach LLM, wrapping it in a fallback chain when
// fallback backends are configured.
func (a *App) initCoach() {
	if a.providers.LLM == nil {
		slog.Warn("no LLM provider configured; coach feedback is rule-based only")
		return
	}
	if len(a.providers.LLMFallbacks) == 0 {
		a.coachP = a.providers.LLM
		return
	}

	fb := resilience.NewLLMFallback(a.providers.LLM, "primary", resilience.FallbackConfig{})
	for i, p := range a.providers.LLMFallbacks {
		fb.AddFallback(fmt.Sprintf("fallback-%d", i+1), p)
	}
	a.coachP = fb
	slog.Info("coach LLM fallback chain assembled", "fallbacks", len(a.providers.LLMFallbacks))
}

// ApplySessionConfig swaps the tunables used for sessions created from now
// on. Called by the config watcher on hot reload.
func (a *App) ApplySessionConfig(sc config.SessionConfig) {
	a.sessionMu.Lock()
	a.sessionCfg = sc
	a.sessionMu.Unlock()
	slog.Info("session tunables updated",
		"feedback_interval", sc.FeedbackInterval,
		"feedback_timeout", sc.FeedbackTimeout,
	)
}

func (a *App) sessionConfig() config.SessionConfig {
	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	return a.sessionCfg
}

// initManager builds the session factory and registry.
func (a *App) initManager() error {
	factory := func(id, userID, difficulty string) (*coach.Session, error) {
		voiceAnalyzer := voicebasic.New()
		sc := a.sessionConfig()

		var opts []coach.Option
		if a.coachP != nil {
			opts = append(opts, coach.WithCoach(a.coachP))
		}
		if d := sc.FeedbackInterval; d > 0 {
			opts = append(opts, coach.WithFeedbackInterval(d))
		}
		if d := sc.FeedbackTimeout; d > 0 {
			opts = append(opts, coach.WithFeedbackTimeout(d))
		}

		return coach.NewSession(id, userID, difficulty, a.facial, voiceAnalyzer, opts...)
	}

	mgr, err := coach.NewManager(coach.ManagerConfig{
		Factory:      factory,
		IdleTimeout:  a.cfg.Session.IdleTimeout,
		ReapInterval: a.cfg.Session.ReapInterval,
	})
	if err != nil {
		return err
	}
	a.manager = mgr
	return nil
}

// initServer assembles readiness checks and the HTTP/WebSocket server.
func (a *App) initServer() error {
	var checkers []health.Checker
	if a.store != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: a.store.Ping,
		})
	}

	defaultDifficulty := a.cfg.Session.DefaultDifficulty
	if defaultDifficulty == "" {
		defaultDifficulty = "beginner"
	}

	srv, err := server.New(server.Config{
		ListenAddr:        a.cfg.Server.ListenAddr,
		Manager:           a.manager,
		Transcriber:       a.providers.STT,
		Store:             a.store,
		Health:            health.New(a.cfg.Telemetry.ServiceName, "", checkers...),
		DefaultDifficulty: defaultDifficulty,
	})
	if err != nil {
		return err
	}
	a.server = srv

	if a.providers.STT != nil {
		a.closers = append(a.closers, a.providers.STT.Close)
	}
	return nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the HTTP server and the session reaper and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		certFile, keyFile := "", ""
		if tls := a.cfg.Server.TLS; tls != nil {
			certFile, keyFile = tls.CertFile, tls.KeyFile
		}
		return a.server.Run(gctx, certFile, keyFile)
	})
	g.Go(func() error {
		a.manager.Run(gctx)
		return nil
	})

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr)
	return g.Wait()
}

// Manager exposes the session registry. Used by tests.
func (a *App) Manager() *coach.Manager { return a.manager }

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.manager.Stop()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
