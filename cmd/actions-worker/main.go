// Actions Worker — выполняет отложенные action tasks.
//
// Worker:
//   - Получает ссылки на tasks из RabbitMQ
//   - Расшифровывает параметры и выполняет action от имени API ключа
//   - Удаляет параметры после выполнения
//   - Отправляет результат в actions.tasks.completed
//   - По расписанию удаляет забытые параметры (janitor, только лидер)
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/api"
	"github.com/shaiso/actions/internal/config"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/janitor"
	"github.com/shaiso/actions/internal/mq"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/spaces"
	"github.com/shaiso/actions/internal/taskrunner"
	"github.com/shaiso/actions/internal/telemetry"
	"github.com/shaiso/actions/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("INFO", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting actions-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// Хранилище и шифрование
	crypto, err := encryption.NewServiceFromBase64(cfg.EncryptionKey)
	if err != nil {
		logger.Error("invalid encryption key", "error", err)
		os.Exit(1)
	}

	store := repo.NewSavedObjectRepo(pool)
	basePaths := spaces.NewBasePathResolver(cfg.ServerBasePath)
	encrypted := savedobjects.NewEncryptedClient(store, crypto, nil)
	scoped := savedobjects.NewClientFactory(store, basePaths, logger)

	// Executor и фабрика runner'ов
	registry := actions.NewRegistry()
	executor := actions.NewExecutor(actions.ExecutorConfig{
		Registry:  registry,
		Loader:    encrypted,
		BasePaths: basePaths,
		Logger:    logger,
	})

	factory := taskrunner.NewFactory(executor)
	err = factory.Initialize(taskrunner.RunnerContext{
		Logger:             logger,
		EncryptedObjects:   encrypted,
		SpaceIDToNamespace: spaces.SpaceIDToNamespace,
		GetBasePath:        basePaths.GetBasePath,
		GetScopedClient: func(req savedobjects.Request) taskrunner.ScopedClient {
			return scoped.GetScopedClient(req)
		},
	})
	if err != nil {
		logger.Error("failed to initialize task runner factory", "error", err)
		os.Exit(1)
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:    cfg.RabbitMQURL,
		Name:   "actions-worker",
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Debug(mq.TopologyInfo())

	publisher := mq.NewPublisher(mqConn, logger)

	// Создаём worker
	w := worker.New(worker.Config{
		Runner:    factory,
		Publisher: publisher,
		Conn:      mqConn,
		Prefetch:  cfg.WorkerPrefetch,
		Logger:    logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Janitor
	jan, err := janitor.New(janitor.Config{
		Store:     store,
		Locker:    repo.NewAdvisoryLocker(pool, janitor.LockKey),
		Schedule:  cfg.JanitorSchedule,
		MaxAge:    cfg.JanitorMaxAge,
		BatchSize: cfg.JanitorBatchSize,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create janitor", "error", err)
		os.Exit(1)
	}
	jan.Start(ctx)

	// HTTP: пробы, метрики, типы actions
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Checks: []api.HealthCheck{
			{Name: "rabbitmq", Check: func(context.Context) error {
				if !mqConn.IsConnected() {
					return errors.New("rabbitmq disconnected")
				}
				return nil
			}},
			{Name: "database", Check: func(ctx context.Context) error { return pool.Ping(ctx) }},
		},
		Registry: registry,
		Logger:   logger,
	}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	// Останавливаем worker и janitor
	w.Stop()
	jan.Stop()
	logger.Info("actions-worker stopped")
}
