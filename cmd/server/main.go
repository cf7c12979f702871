package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/conditions/conditions"
	"github.com/liamcoop/conditions/internal/config"
	"github.com/liamcoop/conditions/internal/logger"
	"github.com/liamcoop/conditions/internal/metrics"
	"github.com/liamcoop/conditions/orgmanager"
	_ "github.com/lib/pq"
)

type Server struct {
	db      *sql.DB // nil when running on in-memory stores
	orgs    orgmanager.OrganizationStore
	manager *orgmanager.Manager
	metrics *metrics.Collector
	log     *slog.Logger
	router  *chi.Mux
}

// NewServer wires the HTTP API over an organization store and manager.
// db may be nil; collector may be nil to disable /metrics.
func NewServer(db *sql.DB, orgs orgmanager.OrganizationStore, manager *orgmanager.Manager, collector *metrics.Collector, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		db:      db,
		orgs:    orgs,
		manager: manager,
		metrics: collector,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1/organizations", func(r chi.Router) {
		r.Get("/", s.handleListOrganizations)
		r.Post("/", s.handleCreateOrganization)

		r.Route("/{orgId}/condition-groups", func(r chi.Router) {
			r.Use(s.withProcessor)

			r.Get("/", s.handleListGroups)
			r.Post("/", s.handleCreateGroup)

			r.Route("/{groupId}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Put("/", s.handleUpdateGroup)
				r.Delete("/", s.handleDeleteGroup)
				r.Post("/evaluate", s.handleEvaluate)

				r.Get("/conditions", s.handleListConditions)
				r.Post("/conditions", s.handleCreateCondition)
				r.Get("/conditions/{conditionId}", s.handleGetCondition)
				r.Put("/conditions/{conditionId}", s.handleUpdateCondition)
				r.Delete("/conditions/{conditionId}", s.handleDeleteCondition)
			})
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request with the chi request ID
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// newCacheFactory returns the per-organization cache constructor for cfg
func newCacheFactory(cfg config.CacheConfig) orgmanager.CacheFactory {
	cacheConfig := conditions.CacheConfig{TTL: cfg.TTL, MaxEntries: cfg.MaxEntries}
	if strings.EqualFold(cfg.Backend, "ristretto") {
		return func() (conditions.GroupCache, error) {
			return conditions.NewRistrettoGroupCache(cacheConfig)
		}
	}
	return func() (conditions.GroupCache, error) {
		return conditions.NewInMemoryGroupCache(cacheConfig), nil
	}
}

// build assembles the server from configuration. The returned cleanup
// closes the database connection, if any.
func build(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Config{
			Enabled:   true,
			Namespace: cfg.Metrics.Namespace,
		}, nil)
	}

	policy, err := conditions.ParseFailurePolicy(cfg.Evaluation.FailurePolicy)
	if err != nil {
		return nil, nil, err
	}
	opts := []conditions.Option{
		conditions.WithLogger(logger.Logger),
		conditions.WithMetrics(collector),
		conditions.WithCELCostLimit(cfg.Evaluation.CELCostLimit),
		conditions.WithFailurePolicy(policy),
	}

	var (
		db       *sql.DB
		orgs     orgmanager.OrganizationStore
		newStore orgmanager.StoreFactory
		cleanup  = func() {}
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		orgs = orgmanager.NewInMemoryOrganizationStore()
		newStore = func(organizationID int64) conditions.GroupStore { return conditions.NewInMemoryGroupStore(organizationID) }
	} else {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		cleanup = func() { db.Close() }
		orgs = orgmanager.NewPostgresOrganizationStore(db)
		newStore = func(organizationID int64) conditions.GroupStore {
			return conditions.NewPostgresGroupStore(db, organizationID)
		}
	}

	manager := orgmanager.NewManager(newStore, newCacheFactory(cfg.Cache), opts...)

	logger.Info("loading organizations")
	if err := manager.LoadAll(ctx, orgs); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load organizations: %w", err)
	}
	logger.Info("organizations loaded", "organizations", manager.ListOrganizations())

	if cfg.SeedFile != "" {
		if err := seed(ctx, cfg.SeedFile, orgs, manager); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return NewServer(db, orgs, manager, collector, logger.Logger), cleanup, nil
}

// seed loads group definitions into the first organization, creating a
// default organization when none exist
func seed(ctx context.Context, path string, orgs orgmanager.OrganizationStore, manager *orgmanager.Manager) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	defs, err := conditions.LoadDefinitions(f)
	if err != nil {
		return err
	}

	ids := manager.ListOrganizations()
	if len(ids) == 0 {
		org, err := orgs.Create(ctx, "default")
		if err != nil {
			return fmt.Errorf("failed to create default organization: %w", err)
		}
		if err := manager.CreateOrganization(org.ID); err != nil {
			return err
		}
		ids = []int64{org.ID}
	}

	processor, err := manager.GetProcessor(ids[0])
	if err != nil {
		return err
	}
	groups, err := conditions.Seed(ctx, processor, defs)
	if err != nil {
		return err
	}

	logger.Info("seeded condition groups", "organization_id", ids[0], "groups", len(groups), "file", path)
	return nil
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("invalid log level, using INFO", "level", cfg.LogLevel)
	}
	logger.SetLevel(level)

	server, cleanup, err := build(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
