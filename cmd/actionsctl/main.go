// actionsctl — инструмент командной строки для управления actions
// и постановки action tasks в очередь.
//
// Использование:
//
//	actionsctl [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	action   Управление actions
//	task     Постановка tasks в очередь
//	janitor  Уборка забытых параметров tasks
//
// Подключения (DB_URL, RABBITMQ_URL, ENCRYPTION_KEY, ...) берутся
// из окружения или CONFIG_FILE, как у actions-worker.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/actions/internal/cli"
	"github.com/shaiso/actions/internal/config"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/enqueue"
	"github.com/shaiso/actions/internal/janitor"
	"github.com/shaiso/actions/internal/mq"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput, verbose bool

	rootCmd := &cobra.Command{
		Use:           "actionsctl",
		Short:         "actionsctl — manage actions and deferred action tasks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	servicesFn := func(ctx context.Context) (*cli.Services, error) {
		return newServices(ctx, verbose)
	}

	rootCmd.AddCommand(
		cli.NewActionCmd(servicesFn, outputFn),
		cli.NewTaskCmd(servicesFn, outputFn),
		cli.NewJanitorCmd(servicesFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newServices подключается к БД и RabbitMQ по конфигурации процесса.
func newServices(ctx context.Context, verbose bool) (*cli.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := telemetry.NewLogger(logOut, cfg.LogLevel, "text")

	crypto, err := encryption.NewServiceFromBase64(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	mqConn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:    cfg.RabbitMQURL,
		Name:   "actionsctl",
		Logger: logger,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		mqConn.Close()
		pool.Close()
		return nil, err
	}

	store := repo.NewSavedObjectRepo(pool)
	enq := enqueue.New(enqueue.Config{
		Objects:   savedobjects.NewEncryptedClient(store, crypto, nil),
		Publisher: mq.NewPublisher(mqConn, logger),
		Logger:    logger,
	})

	jan, err := janitor.New(janitor.Config{
		Store:     store,
		Locker:    repo.NewAdvisoryLocker(pool, janitor.LockKey),
		Schedule:  cfg.JanitorSchedule,
		MaxAge:    cfg.JanitorMaxAge,
		BatchSize: cfg.JanitorBatchSize,
		Logger:    logger,
	})
	if err != nil {
		mqConn.Close()
		pool.Close()
		return nil, err
	}

	return &cli.Services{
		Actions: enq,
		Tasks:   enq,
		Janitor: jan,
		Close: func() {
			mqConn.Close()
			pool.Close()
		},
	}, nil
}
