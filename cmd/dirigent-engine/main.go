// Dirigent Engine — демон выполнения сессий workflow.
//
// Engine:
//   - Получает новые сессии из RabbitMQ (и опрашивает БД как fallback)
//   - Выполняет узлы каждой сессии строго последовательно
//     в топологическом порядке
//   - Фиксирует записи аудита и результаты узлов в PostgreSQL
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Dirigent/internal/dispatch"
	"github.com/shaiso/Dirigent/internal/engine"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/provider"
	"github.com/shaiso/Dirigent/internal/script"
	"github.com/shaiso/Dirigent/internal/session"
	"github.com/shaiso/Dirigent/internal/store"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting dirigent-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := store.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём хранилища
	workflowRepo := store.NewWorkflowRepo(pool)
	sessionRepo := store.NewSessionRepo(pool)
	recordRepo := store.NewRecordRepo(pool)
	dataRepo := store.NewDataRepo(pool)

	// RabbitMQ
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	// Внешние исполнители для обработчиков узлов
	collab := dispatch.Collaborators{
		Scripts:     script.NewRunner(logger),
		Calls:       provider.NewHTTPCallExecutor(),
		Queries:     provider.NewPGQueryExecutor(pool),
		Prompts:     provider.NewHTTPPromptExecutor(),
		Completions: provider.NewChatCompletionProvider(),
	}
	if dsn := os.Getenv("ANALYTICS_DB_URL"); dsn != "" {
		analyticsPool, err := store.NewPoolFromDSN(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to analytics database", "error", err)
			os.Exit(1)
		}
		defer analyticsPool.Close()
		collab.Analytics = provider.NewPGQueryExecutor(analyticsPool)
		logger.Info("analytics database connected")
	}
	if mqConn != nil {
		collab.Broadcaster = mq.NewPublisher(mqConn, logger)
	}

	// Менеджер сессий
	manager := session.NewManager(session.Config{
		Workflows:     workflowRepo,
		Sessions:      sessionRepo,
		Records:       recordRepo,
		Data:          dataRepo,
		Collaborators: collab,
		Logger:        logger,
	})

	// Создаём engine
	eng := engine.New(engine.Config{
		Sessions: sessionRepo,
		Runner:   manager,
		Conn:     mqConn,
		Logger:   logger,
	})

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем engine
	eng.Stop()
	logger.Info("dirigent-engine stopped")
}
