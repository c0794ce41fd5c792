package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"accountflow/internal/application/store"
	"accountflow/internal/audit"
	"accountflow/internal/dashboard"
	httpapi "accountflow/internal/http"
	"accountflow/internal/integration"
	"accountflow/internal/integration/mock"
	"accountflow/internal/lock"
	"accountflow/internal/pipeline"
	"accountflow/internal/platform/config"
	"accountflow/internal/platform/httpserver"
	"accountflow/internal/platform/logger"
	"accountflow/internal/platform/metrics"
	"accountflow/internal/platform/redis"
	"accountflow/internal/platform/tracing"
	"accountflow/internal/rules"
	"accountflow/internal/validation"
	"accountflow/internal/workflow"
	"accountflow/pkg/platform/circuit"
)

const shutdownTimeout = 30 * time.Second

// main wires dependencies, serves HTTP and drains background pipeline runs
// on shutdown.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, httpapi.Version, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				log.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	initial := rules.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := rules.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return err
		}
		initial = loaded
		log.Info("loaded rules file", "path", cfg.RulesFile, "rules", len(loaded))
	}
	engine, err := rules.NewEngine(initial,
		rules.WithLogger(log),
		rules.WithMetrics(rules.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	deps := map[string]httpapi.HealthChecker{}
	sinks := audit.FanOut{audit.NewMemoryStore()}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Warn("failed to flush audit stream", "error", err)
			}
		}()
		if cfg.Kafka.CreateTopic {
			if err := kafkaSink.EnsureTopic(ctx, int32(cfg.Kafka.AuditPartitions)); err != nil {
				return err
			}
		}
		sinks = append(sinks, kafkaSink)
		deps["kafka"] = kafkaSink
		log.Info("audit events streamed to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	publisher := audit.NewPublisher(sinks,
		audit.WithAsyncBuffer(1024),
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(reg)),
	)
	defer publisher.Close()

	var locker lock.Locker = lock.NewRegistry()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient.Client,
			lock.WithTTL(cfg.Pipeline.LockTTL),
			lock.WithLogger(log),
		)
		deps["redis"] = redisClient
		log.Info("using redis application locks")
	}

	gateway := integration.NewGateway(mock.New(mock.WithLatency(cfg.Pipeline.MockLatency)),
		integration.WithTimeout(cfg.Pipeline.IntegrationTimeout),
		integration.WithLogger(log),
		integration.WithMetrics(integration.NewMetrics(reg)),
		integration.WithBreakers(
			circuit.WithFailureThreshold(cfg.Pipeline.BreakerFailures),
			circuit.WithCooldown(cfg.Pipeline.BreakerCooldown),
		),
	)

	apps := store.NewInMemoryStore()
	svc := pipeline.New(apps, gateway, engine, validation.New(),
		pipeline.WithLocker(locker),
		pipeline.WithAuditor(publisher),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(pipeline.NewMetrics(reg)),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Applications: svc,
		Store:        apps,
		Rules:        engine,
		Auditor:      publisher,
		Dashboard:    dashboard.New(apps),
		Workflows:    workflow.NewCatalog(engine, time.Now()),
		Logger:       log,
		Metrics:      metrics.New(reg),
		Gatherer:     reg,
		APIKey:       cfg.APIKey,
		CORSOrigins:  cfg.CORSOrigins,
		Dependencies: deps,
	})
	srv := httpserver.New(cfg.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting accountflow", "addr", cfg.Addr, "rules", engine.Count())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Warn("pipeline runs cancelled before completion", "error", err)
	}
	return nil
}
