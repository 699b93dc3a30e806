package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/config"
	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/core/worker"
	"github.com/vietddude/rpcwatch/internal/health"
	redisclient "github.com/vietddude/rpcwatch/internal/infra/redis"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/probe"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
	"github.com/vietddude/rpcwatch/internal/infra/storage"
	"github.com/vietddude/rpcwatch/internal/infra/storage/memory"
	"github.com/vietddude/rpcwatch/internal/infra/storage/postgres"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

// connectWait bounds how long startup waits for Redis and PostgreSQL.
const connectWait = 15 * time.Second

// App wires resolvers, failover managers, sinks and the health server.
type App struct {
	cfg      *config.AppConfig
	resolver *resolver.Resolver
	factory  *provider.Factory
	prober   *probe.Prober
	registry *failover.Registry
	checker  *health.Checker
	server   *health.Server
	scorer   scoring.Scorer
	history  storage.HistoryRepository
	pruner   *worker.Pruner
	store    *redisclient.StatusStore
	redis    *redisclient.Client
	db       *postgres.DB
	log      *slog.Logger

	cancel context.CancelFunc
}

// NewApp builds every component from cfg. env supplies endpoint variables;
// nil reads the process environment. Redis and PostgreSQL are optional: a
// failed connection is logged and the sink is skipped.
func NewApp(ctx context.Context, cfg *config.AppConfig, env resolver.Env, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	backend, err := provider.ParseBackend(cfg.Failover.Backend)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		resolver: resolver.New(env, log),
		factory:  provider.NewFactory(backend, log),
		registry: failover.NewRegistry(),
		log:      log,
	}
	a.prober = probe.New(a.resolver, log)

	// 1. Sinks
	var recorders []failover.Recorder

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(ctx, cfg.Redis, connectWait, log)
		if err != nil {
			log.Warn("Failed to connect to Redis, status cache disabled", "error", err)
		} else {
			a.redis = client
			a.store = redisclient.NewStatusStore(client, cfg.Redis.StatusTTL)
			recorders = append(recorders, redisclient.NewRecorder(a.store, a.registry, log))
		}
	}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database.Config, connectWait, log)
		if err != nil {
			a.closeSinks()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			a.closeSinks()
			return nil, err
		}
		a.db = db
		a.history = postgres.NewProbeRepo(db)
		log.Info("Using PostgreSQL probe history")
	} else {
		a.history = memory.NewHistoryRepo(memory.DefaultMaxPerChain)
		log.Info("Using memory probe history")
	}
	recorders = append(recorders, storage.NewRecorder(a.history, log))

	if cfg.Database.Retention > 0 {
		a.pruner = worker.NewPruner(a.history, cfg.Database.Retention, log)
	}

	// 2. Failover managers, one per configured chain
	fcfg := failover.Config{
		ErrorThreshold: cfg.Failover.ErrorThreshold,
		SweepInterval:  cfg.Failover.SweepInterval,
		ProbeTimeout:   cfg.Failover.ProbeTimeout,
	}
	fallbacks := cfg.Fallbacks()

	for _, alias := range chainAliases(fallbacks) {
		candidates := resolver.WithFallbacks(a.resolver.Candidates(alias), fallbacks[alias]...)
		m, err := failover.New(alias, candidates, a.factory, a.prober, fcfg, log, recorders...)
		if errors.Is(err, failover.ErrNotConfigured) {
			log.Warn("No RPC endpoints configured, skipping chain", "chain", alias)
			continue
		}
		if err != nil {
			a.Close()
			return nil, err
		}
		a.registry.Add(m)
		log.Debug("Registered failover manager", "chain", alias, "endpoints", len(candidates))
	}

	// 3. Scorer
	a.scorer = scoring.Select(cfg.Scoring.ModelPath, cfg.Scoring.MinConfidence, log)

	// 4. Health surface
	a.checker = health.NewChecker(a.prober, a.resolver, a.registry, fallbacks, cfg.Failover.ProbeTimeout, log)
	a.server = health.NewServer(a.checker, a.registry, a.scorer, cfg.Health.DefaultChains, cfg.Server.Port)

	return a, nil
}

// chainAliases lists the registry chains followed by any extra chain named
// only in the configuration.
func chainAliases(fallbacks map[domain.ChainAlias][]string) []domain.ChainAlias {
	out := domain.Known()
	var extra []domain.ChainAlias
	for alias := range fallbacks {
		if !slices.Contains(out, alias) {
			extra = append(extra, alias)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Start launches the sweep loops, background workers and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.registry.StartHealthChecks(a.cfg.Failover.SweepInterval)

	if a.pruner != nil {
		a.log.Info("Starting history pruner", "retention", a.cfg.Database.Retention)
		go a.pruner.Start(ctx)
	}

	if a.store != nil {
		go func() {
			err := a.store.SubscribeTransitions(ctx, func(t failover.Transition) {
				a.log.Debug("Failover transition published",
					"chain", t.Chain, "from", t.FromURL, "to", t.ToURL, "reason", t.Reason)
			})
			if err != nil {
				a.log.Warn("Transition subscription ended", "error", err)
			}
		}()
	}

	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	a.log.Info("rpcwatch started", "port", a.cfg.Server.Port, "chains", len(a.registry.All()))
	return nil
}

// Stop shuts down the HTTP server, the managers and the sinks.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping rpcwatch...")

	err := a.server.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
	}
	a.Close()
	return err
}

// Close releases managers and sink connections without touching the server.
func (a *App) Close() {
	a.registry.Shutdown()
	a.closeSinks()
}

func (a *App) closeSinks() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
		a.db = nil
	}
}

// Registry returns the failover managers.
func (a *App) Registry() *failover.Registry {
	return a.registry
}

// Checker returns the multi-chain health checker.
func (a *App) Checker() *health.Checker {
	return a.checker
}

// Resolver returns the endpoint resolver.
func (a *App) Resolver() *resolver.Resolver {
	return a.resolver
}

// Scorer returns the opportunity scorer chosen at startup.
func (a *App) Scorer() scoring.Scorer {
	return a.scorer
}

// History returns the probe history repository.
func (a *App) History() storage.HistoryRepository {
	return a.history
}

// Handler returns the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}
