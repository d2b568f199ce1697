package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/mq"
)

const defaultPrefetch = 5

// TaskRunner выполняет task по ссылке (taskrunner.Factory).
type TaskRunner interface {
	RunTask(ctx context.Context, ref domain.TaskReference) error
}

// CompletionPublisher публикует итог выполнения task (mq.Publisher).
type CompletionPublisher interface {
	PublishTaskCompleted(ctx context.Context, payload mq.TaskCompletedPayload) error
}

// Config — конфигурация Worker.
type Config struct {
	Runner TaskRunner

	// Publisher — опционально; без него события о завершении не публикуются.
	Publisher CompletionPublisher
	Conn      *mq.Connection

	// Prefetch — сообщений, обрабатываемых одновременно (default: 5).
	Prefetch int

	Logger *slog.Logger
}

// Worker читает actions.tasks.run и выполняет tasks.
type Worker struct {
	runner    TaskRunner
	publisher CompletionPublisher
	conn      *mq.Connection
	prefetch  int
	logger    *slog.Logger

	started  atomic.Bool
	stopped  atomic.Bool
	consumer *mq.Consumer
	done     chan struct{}
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		prefetch:  prefetch,
		logger:    logger.With("component", "worker"),
		done:      make(chan struct{}),
	}
}

// Start подписывается на очередь и возвращается сразу.
// Потребление идёт до отмены ctx или Stop.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	w.consumer = mq.NewConsumer(w.conn, mq.ConsumerConfig{
		Queue:    mq.QueueTasksRun,
		Handler:  w.handleTaskRun,
		Types:    []mq.MessageType{mq.MessageTypeTaskRun},
		Prefetch: w.prefetch,
		Logger:   w.logger,
	})

	go func() {
		defer close(w.done)
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task consumer stopped", "error", err)
		}
	}()

	w.logger.Info("worker started", "queue", mq.QueueTasksRun, "prefetch", w.prefetch)
	return nil
}

// Stop останавливает потребление и ждёт текущий task.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info("stopping worker")

	if w.consumer != nil {
		w.consumer.Stop()
		<-w.done
	}

	w.logger.Info("worker stopped")
}

// IsStopped сообщает, вызывался ли Stop.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}
