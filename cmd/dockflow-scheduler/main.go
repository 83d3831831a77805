// Dockflow Scheduler — отправляет сообщения в узлы по расписанию.
//
// Несколько экземпляров могут работать одновременно: тик выполняет только
// держатель pg advisory lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/dockflow/internal/mq"
	"github.com/shaiso/dockflow/internal/repo"
	"github.com/shaiso/dockflow/internal/scheduler"
	"github.com/shaiso/dockflow/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting dockflow-scheduler")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	cfg := scheduler.Config{
		Schedules:  repo.NewScheduleRepo(pool),
		Dispatches: repo.NewDispatchRepo(pool),
		Nodes:      repo.NewNodeRepo(pool),
		Logger:     logger,
	}

	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, workers will poll", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go runLoop(telemetry.WithLogger(ctx, logger), pool, sched)

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
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
	logger.Info("dockflow-scheduler stopped")
}

// runLoop раз в секунду пытается стать лидером и выполняет тик.
// Advisory lock живёт на сессии, поэтому соединение держится отдельно от пула.
func runLoop(ctx context.Context, pool *pgxpool.Pool, sched *scheduler.Scheduler) {
	logger := telemetry.FromContext(ctx)

	tk := time.NewTicker(time.Second)
	defer tk.Stop()

	var conn *pgxpool.Conn
	defer func() {
		if conn != nil {
			_, _ = conn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			conn.Release()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}

		if conn == nil {
			c, err := pool.Acquire(ctx)
			if err != nil {
				logger.Warn("failed to acquire connection", "error", err)
				continue
			}

			var ok bool
			if err := c.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil || !ok {
				if err != nil {
					logger.Warn("lock error", "error", err)
				}
				c.Release()
				continue
			}

			logger.Info("acquired scheduler leadership")
			conn = c
		}

		if err := sched.Tick(ctx); err != nil {
			logger.Error("scheduler tick failed", "error", err)
		}
	}
}
