// Dockflow Orchestrator — пересылает исходящие сообщения узлов по wires.
//
// Orchestrator:
//   - Получает исходящие сообщения из RabbitMQ (nodes.output)
//   - Создаёт dispatch для каждого узла-получателя
//   - Отправляет node.input воркерам
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/orchestrator"
	"github.com/shaiso/dockflow/internal/repo"
	"github.com/shaiso/dockflow/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting dockflow-orchestrator")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Без RabbitMQ пересылать нечего: outputs приходят только через очередь.
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Nodes:      repo.NewNodeRepo(pool),
		Dispatches: repo.NewDispatchRepo(pool),
		Publisher:  mq.NewPublisher(mqConn, logger),
		Conn:       mqConn,
		Logger:     logger,
	})

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
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

	orch.Stop()
	logger.Info("dockflow-orchestrator stopped")
}
