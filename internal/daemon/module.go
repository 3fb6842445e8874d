package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/api"
	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/bus"
	"github.com/matheus3301/beazap/internal/config"
	"github.com/matheus3301/beazap/internal/lock"
	"github.com/matheus3301/beazap/internal/logging"
	"github.com/matheus3301/beazap/internal/profile"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/selection"
	"github.com/matheus3301/beazap/internal/settings"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/store"
	"github.com/matheus3301/beazap/internal/stream"
	intsync "github.com/matheus3301/beazap/internal/sync"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional; nil = load ~/.beazap/config.toml
	NoConsole   bool           // log to file only
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideBackend,
			provideCache,
			provideConn,
			provideEngine,
			provideSelection,
			provideThreshold,
			provideShell,
			provideMonitor,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName, "beazapd"), p.ProfileName, logging.Options{
		Level:     cfg.LogLevel,
		NoConsole: p.NoConsole,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the store is only opened by the
// daemon that owns the profile.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.New(cfg.APIURL, logger)
}

func provideCache(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *query.Client {
	return query.New(query.Config{
		RequestTimeout: cfg.RequestTimeout.Duration,
		StaleTime:      cfg.StaleTime.Duration,
		CacheTime:      cfg.CacheTime.Duration,
	}, b, logger)
}

func provideConn(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *stream.Conn {
	return stream.New(shell.StreamConfig(cfg), b, logger)
}

func provideEngine(cache *query.Client, conn *stream.Conn, db *store.DB, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(cache, conn, db, logger)
}

func provideSelection(b *bus.Bus, logger *zap.Logger) *selection.Context {
	return selection.New(b, logger)
}

func provideThreshold(db *store.DB, logger *zap.Logger) (*settings.Setting[int], error) {
	return settings.SLAThreshold(db, logger)
}

type shellDeps struct {
	fx.In

	Config    *config.Config
	DB        *store.DB
	Logger    *zap.Logger
	Bus       *bus.Bus
	API       *backend.Client
	Cache     *query.Client
	Conn      *stream.Conn
	Engine    *intsync.Engine
	Selection *selection.Context
	Threshold *settings.Setting[int]
}

func provideShell(d shellDeps) (*shell.Shell, error) {
	return shell.New(shell.Deps{
		Config:        d.Config,
		DB:            d.DB,
		Logger:        d.Logger,
		Bus:           d.Bus,
		API:           d.API,
		Cache:         d.Cache,
		Conn:          d.Conn,
		Engine:        d.Engine,
		Selection:     d.Selection,
		Threshold:     d.Threshold,
		WatchSettings: true,
	})
}

func provideMonitor(p Params, sh *shell.Shell, logger *zap.Logger) *api.Monitor {
	return api.NewMonitor(p.ProfileName, sh, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, sh *shell.Shell, cache *query.Client, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The shell outlives the start context.
			if err := sh.Start(context.Background()); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			sh.Stop()
			cache.Close()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
