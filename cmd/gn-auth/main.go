// gn-auth serves the authorisation API plus a separate health/metrics
// listener.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/genenetwork/gn-auth/pkg/access"
	"github.com/genenetwork/gn-auth/pkg/api"
	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/authdb"
	"github.com/genenetwork/gn-auth/pkg/config"
	"github.com/genenetwork/gn-auth/pkg/datasets"
	"github.com/genenetwork/gn-auth/pkg/groups"
	"github.com/genenetwork/gn-auth/pkg/migrate"
	"github.com/genenetwork/gn-auth/pkg/observability"
	"github.com/genenetwork/gn-auth/pkg/resources"
	"github.com/genenetwork/gn-auth/pkg/roles"
)

func main() {
	log := logrus.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	tracerProvider, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	deps := api.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}

	if authdb.Available(cfg.Stores.AuthDB) {
		db, err := authdb.Open(cfg.Stores.AuthDB)
		if err != nil {
			log.Fatalf("Failed to open authorisation store: %v", err)
		}
		defer db.Close()
		if err := authdb.RunMigrations(ctx, db); err != nil {
			log.Fatalf("Failed to migrate authorisation store: %v", err)
		}
		if metrics != nil {
			metrics.RegisterDBStats(db)
		}

		engine, err := roles.NewEngine(db)
		if err != nil {
			log.Fatalf("Failed to create role engine: %v", err)
		}
		deps.Boundary = auth.NewBoundary(db)
		deps.Access = access.NewService(engine, resources.NewStore(db), metrics)

		// The migration pipeline needs both collaborator stores; without
		// them the endpoint stays unavailable while the rest serves.
		if cfg.Stores.SQLURI != "" {
			catalog, err := datasets.Connect(cfg.Stores.SQLURI)
			if err != nil {
				log.Fatalf("Failed to connect to the datasets database: %v", err)
			}
			defer catalog.Close()
			legacy, err := datasets.NewLegacyStore(cfg.Stores.RedisURL)
			if err != nil {
				log.Fatalf("Failed to connect to the legacy registry: %v", err)
			}
			defer legacy.Close()

			deps.Coordinator = migrate.NewCoordinator(
				db, auth.NewUserStore(db), groups.NewStore(db), engine,
				catalog, legacy, metrics, log)
		} else {
			log.Warn("SQL_URI not set; the data migration endpoint is unavailable")
		}
	} else {
		log.Warn("AUTH_DB not set or missing; authorisation endpoints are unavailable")
	}

	server := api.NewServer(deps)
	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: api.HealthHandler(registry),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Infof("Authorisation API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Infof("Health/metrics listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		apiServer.Shutdown(shutdownCtx)
		healthServer.Shutdown(shutdownCtx)
		if tracerProvider != nil {
			tracerProvider.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Info("Shutdown complete")
}
