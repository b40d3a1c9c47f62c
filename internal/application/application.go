package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/apheresis/internal/api"
	"github.com/eugenenazirov/apheresis/internal/config"
	"github.com/eugenenazirov/apheresis/internal/metrics"
	"github.com/eugenenazirov/apheresis/internal/storage"
)

const (
	// Name identifies the service in logs and the index document.
	Name = "apheresis-calculator"
	// Version is reported by the index document.
	Version = "1.0.0"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	metrics *metrics.Recorder
	handler *api.Handler
	router  http.Handler
	root    http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.SetContainerTypes(cfg.InitialContainerTypes); err != nil {
		return nil, fmt.Errorf("failed to apply initial container types: %w", err)
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	handler := api.NewHandler(store,
		api.WithMetrics(recorder),
		api.WithLogger(logger),
		api.WithDefaults(api.Defaults{
			Efficiency:              cfg.DefaultEfficiency,
			MaxAllowedConcentration: cfg.MaxLeukocyteConcentration,
		}),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	var metricsHandler http.Handler
	if recorder != nil {
		metricsHandler = recorder.Handler()
	}
	root := BuildRootHandler(apiRouter, metricsHandler)

	return &App{
		storage: store,
		metrics: recorder,
		handler: handler,
		router:  apiRouter,
		root:    root,
		logger:  logger,
		server:  NewServer(cfg, root),
	}, nil
}

// BuildRootHandler mounts the API under /api/, the Prometheus endpoint under
// /metrics when metricsHandler is non-nil, and a JSON index at /.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	index := indexDocument(metricsHandler != nil)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(index)
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr), zap.Bool("metrics", a.metrics != nil))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root handler served by the HTTP server.
func (a *App) Handler() http.Handler {
	return a.root
}
