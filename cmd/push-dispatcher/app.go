package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"pushflow/internal/broker"
	"pushflow/internal/config"
	"pushflow/internal/constants"
	"pushflow/internal/contacts"
	"pushflow/internal/dispatch"
	"pushflow/internal/gateway"
	"pushflow/internal/logger"
	"pushflow/internal/stats"
	"pushflow/pkg/bootstrap"
	"pushflow/pkg/health"
	"pushflow/pkg/logging"
	"pushflow/pkg/metrics"
	"pushflow/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	mongoClient    *mongo.Client
	postgresDB     *sql.DB
	dispatcher     *dispatch.Dispatcher
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("push-dispatcher")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	var err error

	if a.redis, err = a.dbConnector.InitRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if a.mongoClient, err = a.dbConnector.InitMongoDB(ctx); err != nil {
		return fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	if a.postgresDB, err = a.dbConnector.InitPostgreSQL(ctx); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := a.initDispatcher(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "push-dispatcher")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDispatchMetrics()
	metrics.RegisterFanoutMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()

	return nil
}

func (a *App) initDispatcher() error {
	statsRepo := stats.NewRepository(a.postgresDB)
	counters := stats.NewMessageCounters(a.redis)
	statsService := stats.NewService(statsRepo, counters, a.Logger)

	contactRepo := contacts.NewRepository(a.mongoClient.Database(a.Config.Database.MongoDB.Database))

	gatewayClient := gateway.NewClient(a.Config.Gateway, a.Config.CircuitBreaker, a.Logger)
	pipeline := dispatch.NewPipeline(statsService, contactRepo, a.Logger)

	registry := dispatch.NewRegistry()
	if err := registry.Register(dispatch.NewWebPushVariant(a.Config.Dispatch.Queue, gatewayClient, pipeline, a.Logger)); err != nil {
		return err
	}

	variant, err := registry.Get(a.Config.Dispatch.Variant)
	if err != nil {
		return err
	}

	newConsumer := func() (broker.Consumer, error) {
		return broker.NewConsumer(a.Config.Broker, a.Logger)
	}
	a.dispatcher = dispatch.NewDispatcher(variant, newConsumer, a.Config.Dispatch.Parallelism, a.Logger)
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	if a.postgresDB != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if err := a.dispatcher.Start(gCtx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.dispatcher.Stop()
		return nil
	})

	g.Go(a.dispatcher.Wait)

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "push-dispatcher")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down push dispatcher")

	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.postgresDB, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
