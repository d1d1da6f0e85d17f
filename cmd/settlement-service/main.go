package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/app/background"
	"github.com/LavaJover/shvark-settlement-service/internal/app/setup"
	"github.com/LavaJover/shvark-settlement-service/internal/config"
	"github.com/LavaJover/shvark-settlement-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/kafka"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	logger := newLogger(cfg.LogConfig)
	slog.SetDefault(logger)

	deps, err := setup.InitializeDependencies(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}
	defer deps.Close()
	uc := setup.InitializeUseCases(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Creating gRPC server
	grpcServer := grpc.NewServer()
	grpcapi.RegisterSettlementServiceServer(grpcServer, grpcapi.NewSettlementHandler(
		uc.Evaluator,
		uc.Orchestrator,
		uc.Quotes,
		uc.Rules,
		logger,
	))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcapi.SettlementServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.MetricsServer.Host, cfg.MetricsServer.Port),
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// fx rate refresh and quote sweep
	tasks := &background.BackgroundTasks{
		Rates:           uc.Rates,
		RefreshInterval: cfg.FX.RefreshInterval,
		SweepInterval:   cfg.FX.SweepInterval,
		Logger:          logger,
	}
	if uc.MemoryQuotes != nil {
		tasks.Quotes = uc.MemoryQuotes
	}
	tasks.StartAll(ctx)

	if cfg.Scheduler.Enabled {
		runner := background.NewScheduleRunner(
			deps.Repositories.Rules,
			uc.Orchestrator,
			uc.Balances,
			cfg.Scheduler.ReloadInterval,
			logger,
		)
		runner.StoreTimeout = cfg.Execution.StoreTimeout
		go runner.Start(ctx)
	}

	if deps.Subscriber != nil {
		consumer := kafka.NewBalanceConsumer(deps.Subscriber, uc.Orchestrator, cfg.Kafka.BalanceTopic, cfg.Kafka.GroupID, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("balance consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("gRPC server started", "host", cfg.GRPCServer.Host, "port", cfg.GRPCServer.Port)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
