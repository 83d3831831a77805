// Dockflow API — REST API узлов, dispatch и расписаний.
//
// Помимо CRUD отдаёт статусы узлов по WebSocket и списки
// контейнеров/томов для редактора узлов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/dockflow/internal/api"
	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
	"github.com/shaiso/dockflow/internal/telemetry"
)

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting dockflow-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	hub := api.NewHub(logger)

	cfg := api.Config{
		Nodes:      repo.NewNodeRepo(pool),
		Dispatches: repo.NewDispatchRepo(pool),
		Schedules:  repo.NewScheduleRepo(pool),
		Hub:        hub,
		Logger:     logger,
	}

	// RabbitMQ опционален: без него воркеры забирают dispatch через polling,
	// а статусы по WebSocket не приходят.
	var statusConsumer *mq.Consumer
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, running without publisher", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)

		statusConsumer = mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Exchange: mq.ExchangeStatus,
			Handler:  hub.HandleDelivery,
			Prefetch: 50,
		})
		go func() {
			if err := statusConsumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("status consumer stopped", "error", err)
			}
		}()
		logger.Info("RabbitMQ connected")
	}

	// Docker нужен только для /containerSearch и /volumeSearch.
	if os.Getenv("DOCKER_ENGINE_HOST") != "" || os.Getenv("DOCKER_HOST") != "" {
		dockerClient, err := docker.New(ctx, docker.Config{
			Host:   os.Getenv("DOCKER_ENGINE_HOST"),
			Logger: logger,
		})
		if err != nil {
			logger.Warn("docker unavailable, discovery disabled", "error", err)
		} else {
			defer dockerClient.Close()
			cfg.Searcher = dockerClient
		}
	}

	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if statusConsumer != nil {
		statusConsumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("dockflow-api stopped")
}
