package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"taskvault/api"
	"taskvault/config"
	"taskvault/storage"

	"go.uber.org/zap"
)

// App represents the TaskVault application with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Storage. Nil when database initialization failed at startup; the
	// service then runs degraded (liveness endpoints only).
	SQLite      *storage.SQLite
	UserStorage *storage.SQLiteUserStorage
	TaskStorage *storage.SQLiteTaskStorage

	// Services
	APIServer  *api.API
	TokenStore api.TokenStore

	// Lifecycle
	serviceWg    *sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApp creates a new application instance and initializes all components.
//
// Failure policy: database initialization failure is logged and swallowed so
// the liveness endpoints keep serving (a transient outage at boot must not
// take the process down with it). API server construction failure is fatal —
// serving a partial route surface silently is worse than not starting.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg: &sync.WaitGroup{},
	}

	// Initialize logger
	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("TaskVault starting...")

	// Load configuration
	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	// Pre-flight checks
	if err := EnsureDataDirectories(cfg, sugar); err != nil {
		sugar.Errorw("Pre-flight check failed, storage will be unavailable", "error", err)
	} else if err := app.initStorage(cfg, sugar); err != nil {
		// Deliberate degrade-instead-of-crash: keep serving liveness
		// endpoints without a working database.
		sugar.Errorw("Database initialization failed", "error", err)
		sugar.Warn("Continuing without database; storage-backed endpoints will return 503")
	}

	// Token revocation store
	tokens, err := InitTokenStore(cfg, sugar)
	if err != nil {
		sugar.Errorw("Redis token store unavailable, falling back to in-memory store", "error", err)
		tokens = api.NewMemoryTokenStore()
	}
	app.TokenStore = tokens

	// API server construction is fatal on error
	apiServer, err := api.NewAPI(userStorerOrNil(app.UserStorage), taskStorerOrNil(app.TaskStorage), tokens, cfg, sugar)
	if err != nil {
		sugar.Errorw("Failed to construct API server", "error", err)
		return nil, fmt.Errorf("failed to construct API server: %w", err)
	}
	app.APIServer = apiServer

	app.logStartupBanner()

	return app, nil
}

// initStorage opens SQLite and wires the user and task storage on top of it.
func (a *App) initStorage(cfg *config.Config, sugar *zap.SugaredLogger) error {
	sqlite, err := storage.NewSQLite(cfg.GetSQLitePath(), sugar)
	if err != nil {
		return err
	}
	a.SQLite = sqlite
	a.UserStorage = storage.NewSQLiteUserStorage(sqlite, cfg.Auth.BcryptCost, sugar)
	a.TaskStorage = storage.NewSQLiteTaskStorage(sqlite, sugar)
	return nil
}

// Start starts the HTTP server.
func (a *App) Start(ctx context.Context) error {
	addr := a.Config.ListenAddr()
	a.Sugar.Infow("Starting API server", "addr", addr)

	errCh := make(chan error, 1)
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Give the listener a moment to fail on bind errors so startup
	// problems surface as a non-zero exit instead of a silent log line.
	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed to start: %w", err)
	case <-time.After(250 * time.Millisecond):
	}

	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown tears down services. Runs at most once per process lifetime;
// cleanup failures are logged and never block process exit.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.Sugar.Info("Shutting down...")

		// Stop accepting requests and drain in-flight ones
		if a.APIServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.APIServer.Stop(ctx); err != nil {
				a.Sugar.Errorw("Failed to stop API server", "error", err)
			}
		}

		// Wait for the server goroutine
		done := make(chan struct{})
		go func() {
			a.serviceWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.Sugar.Warn("Server goroutine shutdown timed out")
		}

		if a.TokenStore != nil {
			if err := a.TokenStore.Close(); err != nil {
				a.Sugar.Errorw("Failed to close token store", "error", err)
			}
		}

		// Close database connections last
		if a.SQLite != nil {
			a.Sugar.Info("Closing database connections...")
			if err := a.SQLite.Close(); err != nil {
				a.Sugar.Errorw("Failed to close database", "error", err)
			} else {
				a.Sugar.Info("Database connections closed")
			}
		}

		a.Sugar.Info("Shutdown complete")
	})
}

// logStartupBanner logs the resolved runtime identity once at boot.
func (a *App) logStartupBanner() {
	env := "Development"
	if a.Config.IsProduction() {
		env = "Production"
	}
	a.Sugar.Infow("Application configured",
		"app", a.Config.App.Name,
		"version", a.Config.App.Version,
		"environment", env,
		"debug", a.Config.App.Debug,
		"cors_origins", a.Config.API.AllowedOrigins,
		"storage", a.SQLite != nil)
}

// userStorerOrNil converts a possibly-nil concrete storage into the API's
// interface without producing a non-nil interface around a nil pointer.
func userStorerOrNil(s *storage.SQLiteUserStorage) api.UserStorer {
	if s == nil {
		return nil
	}
	return s
}

func taskStorerOrNil(s *storage.SQLiteTaskStorage) api.TaskStorer {
	if s == nil {
		return nil
	}
	return s
}
