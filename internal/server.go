package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fittrack/internal/assistant"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/persistence"
	"github.com/2beens/fittrack/internal/stats"
	"github.com/2beens/fittrack/internal/stopwatch"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/workouts"
	"github.com/2beens/fittrack/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

const mutationsRateLimitKey = "fittrack-mutations"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config    *config.Config
	storage   *Storage
	adapter   *persistence.Adapter
	store     *workouts.Store
	engine    *stats.Engine
	stopwatch *stopwatch.Stopwatch

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	loc, err := params.Config.Location()
	if err != nil {
		return nil, err
	}

	storage, err := OpenStorage(ctx, OpenStorageParams{
		Config:         params.Config,
		RedisPassword:  params.RedisPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(storage.Collectors()...)
	metricsManager := metrics.NewManager("fittrack", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittrack-backend")
	if err != nil {
		return nil, multierr.Append(err, storage.Close())
	}

	adapter := persistence.NewAdapter(storage.Backend, metricsManager)
	initialState, err := adapter.Load(ctx)
	if err != nil {
		otelShutdown()
		return nil, multierr.Append(fmt.Errorf("load state: %w", err), storage.Close())
	}
	log.Infof("loaded %d workouts from %s backend", len(initialState.Workouts), adapter.BackendName())

	store := workouts.NewStore(initialState, adapter, metricsManager)
	if params.Config.SeedDemo {
		if _, err := store.SeedDemo(ctx); err != nil {
			log.Errorf("seed demo workouts: %s", err)
		}
	}

	return &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		storage:     storage,
		adapter:     adapter,
		store:       store,
		engine:      stats.NewEngine(store, loc),
		stopwatch:   stopwatch.New(store, metricsManager),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	// the stats routes own GET /workouts and /workouts/recent,
	// so they go before /workouts/{id}
	stats.NewHandler(s.engine).SetupRoutes(r)
	workouts.NewHandler(s.store).SetupRoutes(r)
	workouts.NewSettingsHandler(s.store).SetupRoutes(r)
	stopwatch.NewHandler(s.stopwatch).SetupRoutes(r)

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	if s.config.MCPEnabled {
		mcpServer := assistant.NewServer(assistant.NewTrackerService(s.engine, s.store))
		mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpServer
		}, nil)
		r.PathPrefix("/mcp").Handler(otelhttp.NewHandler(mcpHandler, "mcp")).Name("mcp")
		log.Debugln("mcp tool server mounted at /mcp")
	}

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	if s.config.MutationsRateLimitPerMin > 0 {
		if s.storage.RedisClient == nil {
			return nil, errors.New("mutations rate limit set, but redis is not configured")
		}
		r.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.storage.RedisClient),
			s.metricsManager,
			mutationsRateLimitKey,
			s.config.MutationsRateLimitPerMin,
		))
	}
	r.Use(middleware.SyncState(s.store))
	r.Use(middleware.DrainAndCloseRequest(middleware.DefaultMaxBodyBytes))

	return r, nil
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if sErr := s.httpServer.Shutdown(ctx); sErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", sErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if sErr := s.metricsHttpServer.Shutdown(ctx); sErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics http server: %w", sErr))
		}
		log.Warnln("metrics server shut down")
	}

	// no requests in flight anymore, a running timer session is dropped
	if status := s.stopwatch.Status(); status.Running {
		log.Warnf("timer session [%s] running for %s discarded on shutdown", status.Type, status.ElapsedText)
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	err = multierr.Append(err, s.storage.Close())
	if err != nil {
		log.Errorf("graceful shutdown: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
