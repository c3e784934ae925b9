// Package api implements the TaskVault HTTP API: liveness endpoints,
// authentication routes under /api/auth, and task routes under /api/tasks.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"taskvault/config"
	"taskvault/core"
	"taskvault/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserStorer is the slice of user storage the API consumes.
type UserStorer interface {
	CreateUser(ctx context.Context, user *storage.User) error
	GetUserByUsername(ctx context.Context, username string) (*storage.User, error)
	ValidateCredentials(ctx context.Context, username, password string) (*storage.User, error)
}

// TaskStorer is the slice of task storage the API consumes.
type TaskStorer interface {
	CreateTask(ctx context.Context, task *core.Task) error
	GetTask(ctx context.Context, owner, id string) (*core.Task, error)
	ListTasks(ctx context.Context, owner string, filters core.TaskFilters) ([]core.Task, error)
	CountTasks(ctx context.Context, owner string, filters core.TaskFilters) (int64, error)
	UpdateTask(ctx context.Context, task *core.Task) error
	DeleteTask(ctx context.Context, owner, id string) error
}

// API holds the API server
type API struct {
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	userStorage UserStorer
	taskStorage TaskStorer
	tokens      TokenStore
	config      *config.Config
	logger      *zap.SugaredLogger

	rateLimiters    map[string]*rateLimiterEntry
	rateLimitersMu  sync.Mutex
	loginLimiters   map[string]*rateLimiterEntry
	loginLimitersMu sync.Mutex

	stopCh    chan struct{}
	stopOnce  sync.Once
	startedAt time.Time
}

// NewAPI creates a new API server. Construction is fatal-on-error: a
// misconfigured route surface must stop the process rather than serve a
// partial API, so callers are expected to propagate the error.
func NewAPI(userStorage UserStorer, taskStorage TaskStorer, tokens TokenStore, cfg *config.Config, logger *zap.SugaredLogger) (*API, error) {
	if cfg == nil {
		return nil, errors.New("api: config is required")
	}
	if logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("api: auth routes require a JWT secret")
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	api := &API{
		router:        mux.NewRouter(),
		userStorage:   userStorage,
		taskStorage:   taskStorage,
		tokens:        tokens,
		config:        cfg,
		logger:        logger,
		rateLimiters:  make(map[string]*rateLimiterEntry),
		loginLimiters: make(map[string]*rateLimiterEntry),
		stopCh:        make(chan struct{}),
		startedAt:     time.Now().UTC(),
	}
	api.setupRoutes()
	go api.cleanupRateLimiters()
	return api, nil
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	if a.config.Metrics.Enabled {
		a.router.Use(a.metricsMiddleware)
	}
	a.router.Use(a.rateLimitMiddleware)

	// Liveness endpoints: pure reads of config plus wall-clock time,
	// deliberately independent of storage health.
	a.router.HandleFunc("/", a.root).Methods("GET")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")

	if a.config.Metrics.Enabled {
		a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	auth := a.router.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", a.register).Methods("POST")
	auth.HandleFunc("/login", a.login).Methods("POST")
	auth.HandleFunc("/logout", a.logout).Methods("POST")
	auth.Handle("/me", a.jwtAuthMiddleware(http.HandlerFunc(a.me))).Methods("GET")

	tasks := a.router.PathPrefix("/api/tasks").Subrouter()
	tasks.Use(a.jwtAuthMiddleware)
	tasks.HandleFunc("", a.createTask).Methods("POST")
	tasks.HandleFunc("", a.listTasks).Methods("GET")
	tasks.HandleFunc("/{id}", a.getTask).Methods("GET")
	tasks.HandleFunc("/{id}", a.updateTask).Methods("PUT")
	tasks.HandleFunc("/{id}", a.deleteTask).Methods("DELETE")

	// CORS wraps the whole router so preflight OPTIONS requests are
	// answered even for method-restricted routes.
	a.handler = a.corsMiddleware(a.router)
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (a *API) Handler() http.Handler {
	return a.handler
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a.server.ListenAndServe()
}

// Stop stops the API server and the background goroutines.
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
