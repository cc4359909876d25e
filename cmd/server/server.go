package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/thenexusengine/tne_fastlane/internal/adapters/rubicon"
	fastlaneconfig "github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/endpoints"
	"github.com/thenexusengine/tne_fastlane/internal/exchange"
	"github.com/thenexusengine/tne_fastlane/internal/metrics"
	"github.com/thenexusengine/tne_fastlane/internal/middleware"
	"github.com/thenexusengine/tne_fastlane/internal/storage"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
	"github.com/thenexusengine/tne_fastlane/pkg/redis"
)

// Server represents the Fastlane server
type Server struct {
	config      *ServerConfig
	httpServer  *http.Server
	metrics     *metrics.Metrics
	exchange    *exchange.Exchange
	settings    fastlaneconfig.Layered
	db          *sql.DB
	redisClient *redis.Client
}

// NewServer creates a new server instance with its own metrics registry
func NewServer(cfg *ServerConfig) (*Server, error) {
	s := &Server{
		config: cfg,
	}

	if err := s.initialize(); err != nil {
		return nil, err
	}

	return s, nil
}

// initialize sets up all server components
func (s *Server) initialize() error {
	log := logger.Log

	log.Info().
		Str("port", s.config.Port).
		Str("fastlane_endpoint", s.config.FastlaneEndpoint).
		Dur("timeout", s.config.Timeout).
		Msg("Initializing Fastlane server")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = metrics.NewMetrics("fastlane", reg)

	// Settings sources are optional; failures leave the server on env settings
	if err := s.initDatabase(); err != nil {
		log.Warn().Err(err).Msg("Database initialization failed, Postgres settings disabled")
	}
	if err := s.initRedis(); err != nil {
		log.Warn().Err(err).Msg("Redis initialization failed, Redis settings disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.settings = s.loadSettings(ctx, s.redisSettings(), s.postgresSettings())

	s.initExchange()
	s.initHandlers()

	return nil
}

// initDatabase opens the Postgres settings database when DB_HOST is set
func (s *Server) initDatabase() error {
	if s.config.DatabaseConfig == nil {
		logger.Log.Info().Msg("DB_HOST not set, Postgres settings disabled")
		return nil
	}

	dbCfg := s.config.DatabaseConfig
	db, err := storage.NewDBConnection(
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Name,
		dbCfg.SSLMode,
	)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// initRedis initializes the Redis client
func (s *Server) initRedis() error {
	if s.config.RedisURL == "" {
		logger.Log.Info().Msg("REDIS_URL not set, Redis settings disabled")
		return nil
	}

	client, err := redis.New(s.config.RedisURL)
	if err != nil {
		return err
	}
	s.redisClient = client
	return nil
}

func (s *Server) redisSettings() *storage.RedisSettings {
	if s.redisClient == nil {
		return nil
	}
	rs := storage.NewRedisSettings(s.redisClient, fastlaneconfig.RedisSettingsKey)
	rs.SetRecorder(s.metrics)
	return rs
}

func (s *Server) postgresSettings() *storage.SettingsStore {
	if s.db == nil {
		return nil
	}
	ps := storage.NewSettingsStore(s.db)
	ps.SetRecorder(s.metrics)
	return ps
}

// loadSettings layers environment over Redis over Postgres. A source that
// fails to load is skipped.
func (s *Server) loadSettings(ctx context.Context, rs *storage.RedisSettings, ps *storage.SettingsStore) fastlaneconfig.Layered {
	log := logger.Storage()
	layers := fastlaneconfig.Layered{fastlaneconfig.FromEnv()}

	if rs != nil {
		settings, err := rs.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load settings from Redis")
		} else {
			layers = append(layers, settings)
		}
	}

	if ps != nil {
		settings, err := ps.Load(ctx, s.config.SettingsNamespace)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load settings from Postgres")
		} else {
			layers = append(layers, settings)
		}
	}

	log.Info().Int("layers", len(layers)).Msg("Settings loaded")
	return layers
}

// initExchange builds the Fastlane adapter and the exchange around it
func (s *Server) initExchange() {
	adapter := rubicon.New(s.config.FastlaneEndpoint,
		rubicon.WithVideoEndpoint(s.config.VideoEndpoint),
		rubicon.WithSyncURL(s.config.SyncURL),
		rubicon.WithStore(s.settings),
	)

	s.exchange = exchange.New(adapter, s.config.ToExchangeConfig())
	s.exchange.SetMetrics(s.metrics)

	logger.Log.Info().
		Str("bidder", adapter.Code()).
		Strs("aliases", adapter.Aliases()).
		Bool("single_request", fastlaneconfig.Bool(s.settings, fastlaneconfig.KeySingleRequest)).
		Msg("Exchange initialized")
}

// initHandlers registers routes and builds the HTTP server
func (s *Server) initHandlers() {
	adapter := s.exchange.Adapter()

	r := mux.NewRouter()
	r.Handle("/fastlane/auction", endpoints.NewAuctionHandler(s.exchange)).Methods(http.MethodPost)
	r.Handle("/fastlane/compile", endpoints.NewCompileHandler(s.exchange)).Methods(http.MethodPost)
	r.Handle("/fastlane/usersync", endpoints.NewUserSyncHandler(adapter)).Methods(http.MethodPost)
	r.Handle("/info/bidders", endpoints.NewInfoBiddersHandler(adapter)).Methods(http.MethodGet)
	r.Handle("/status", endpoints.NewStatusHandler(rubicon.Version)).Methods(http.MethodGet)
	r.Handle("/health", healthHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", readyHandler(s.redisClient, s.db)).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.buildHandler(r),
		ReadTimeout:  fastlaneconfig.ServerReadTimeout,
		WriteTimeout: fastlaneconfig.ServerWriteTimeout,
		IdleTimeout:  fastlaneconfig.ServerIdleTimeout,
	}
}

// buildHandler builds the middleware chain: Size Limit -> Metrics -> Logging -> Router
func (s *Server) buildHandler(router http.Handler) http.Handler {
	handler := middleware.Logging(router)
	handler = s.metrics.Middleware(handler)
	handler = middleware.SizeLimit(middleware.LimitsFromEnv())(handler)
	return handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.Log.Info().Str("addr", s.httpServer.Addr).Msg("Server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes the settings connections
func (s *Server) Shutdown(ctx context.Context) error {
	log := logger.Log
	log.Info().Msg("Starting graceful shutdown")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing Redis client")
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}

	log.Info().Msg("Server stopped gracefully")
	return nil
}

// healthHandler returns a simple liveness check
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   rubicon.Version,
		})
	})
}

// readyHandler reports readiness of the configured settings sources
func readyHandler(redisClient *redis.Client, db *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := make(map[string]interface{})
		allHealthy := true

		check := func(name string, enabled bool, ping func(context.Context) error) {
			if !enabled {
				checks[name] = map[string]string{"status": "disabled"}
				return
			}
			if err := ping(ctx); err != nil {
				checks[name] = map[string]string{"status": "unhealthy", "error": err.Error()}
				allHealthy = false
				return
			}
			checks[name] = map[string]string{"status": "healthy"}
		}

		check("redis", redisClient != nil, func(ctx context.Context) error { return redisClient.Ping(ctx) })
		check("postgres", db != nil, func(ctx context.Context) error { return db.PingContext(ctx) })

		status := http.StatusOK
		if !allHealthy {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]interface{}{
			"ready":     allHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.HTTP().Error().Err(err).Msg("failed to encode response")
	}
}
