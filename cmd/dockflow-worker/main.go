// Dockflow Worker — выполняет dispatch узлов против Docker Engine.
//
// Worker:
//   - Получает dispatch из RabbitMQ (nodes.input) и через polling
//   - Разбирает параметры узла и сообщения, вызывает Docker API
//   - Публикует исходящие сообщения и статусы узлов
//   - Держит потоки stats / exec / run до закрытия или остановки
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/dockflow/internal/artifact"
	"github.com/shaiso/dockflow/internal/dispatch"
	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
	"github.com/shaiso/dockflow/internal/telemetry"
	"github.com/shaiso/dockflow/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting dockflow-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	dockerClient, err := docker.New(ctx, docker.Config{
		Host:   os.Getenv("DOCKER_ENGINE_HOST"),
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to connect to docker", "error", err)
		os.Exit(1)
	}

	artifacts, err := artifact.NewS3(ctx, artifact.ConfigFromEnv())
	if err != nil {
		logger.Error("failed to init artifact store", "error", err)
		os.Exit(1)
	}

	engine := dispatch.New(dispatch.Config{
		Client:    dockerClient,
		Artifacts: artifacts,
		Logger:    logger,
	})

	cfg := worker.Config{
		Dispatches: repo.NewDispatchRepo(pool),
		Nodes:      repo.NewNodeRepo(pool),
		Engine:     engine,
		Logger:     logger,
	}

	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	w := worker.New(cfg)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	w.Stop()
	engine.Wait()
	logger.Info("dockflow-worker stopped")
}
