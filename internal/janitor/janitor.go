package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/telemetry"
)

// LockKey — ключ advisory lock для лидерства janitor'а.
const LockKey int64 = 515151

// Default configuration values.
const (
	defaultSchedule   = "*/15 * * * *"
	defaultMaxAge     = 24 * time.Hour
	defaultBatchSize  = 100
	defaultMaxBatches = 50
)

// Store — хранилище saved objects (repo.SavedObjectRepo).
type Store interface {
	ListOlderThan(ctx context.Context, objectType string, before time.Time, limit int) ([]repo.Record, error)
	DeleteByIDs(ctx context.Context, objectType string, ids []uuid.UUID) (int64, error)
}

// Locker — лидерство (repo.AdvisoryLocker).
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// Result — итог одного тика.
type Result struct {
	// Leader — тик выполнялся (lock взят).
	Leader bool `json:"leader"`

	// Deleted — удалено записей.
	Deleted int64 `json:"deleted"`

	// Batches — выполнено пачек.
	Batches int `json:"batches"`
}

// Janitor периодически удаляет старые action_task_params.
type Janitor struct {
	store      Store
	locker     Locker
	schedule   string
	maxAge     time.Duration
	batchSize  int
	maxBatches int
	logger     *slog.Logger
	now        func() time.Time

	cron *cron.Cron
}

// Config — конфигурация Janitor.
type Config struct {
	Store  Store
	Locker Locker // опционально; без него каждый экземпляр считает себя лидером

	Schedule   string        // cron-выражение (default: */15 * * * *)
	MaxAge     time.Duration // возраст записи для удаления (default: 24h)
	BatchSize  int           // записей за одну пачку (default: 100)
	MaxBatches int           // пачек за один тик (default: 50)

	Logger *slog.Logger
}

// New создаёт Janitor. Возвращает ошибку для невалидного Schedule.
func New(cfg Config) (*Janitor, error) {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxBatches := cfg.MaxBatches
	if maxBatches <= 0 {
		maxBatches = defaultMaxBatches
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		store:      cfg.Store,
		locker:     cfg.Locker,
		schedule:   schedule,
		maxAge:     maxAge,
		batchSize:  batchSize,
		maxBatches: maxBatches,
		logger:     logger.With("component", "janitor"),
		now:        time.Now,
	}, nil
}

// Tick выполняет одну уборку.
//
// 1. Берёт advisory lock (не лидер — пропускает тик)
// 2. Находит action_task_params старше MaxAge
// 3. Удаляет их пачками, пока пачки полные
func (j *Janitor) Tick(ctx context.Context) (Result, error) {
	var res Result

	if j.locker != nil {
		release, ok, err := j.locker.TryLock(ctx)
		if err != nil {
			return res, fmt.Errorf("acquire janitor lock: %w", err)
		}
		if !ok {
			// не лидер — пропускаем тик
			j.logger.Debug("janitor lock held by another instance, skipping tick")
			return res, nil
		}
		defer release()
	}
	res.Leader = true

	before := j.now().Add(-j.maxAge)

	for res.Batches < j.maxBatches {
		records, err := j.store.ListOlderThan(ctx, domain.ActionTaskParamsType, before, j.batchSize)
		if err != nil {
			return res, fmt.Errorf("list stale action_task_params: %w", err)
		}
		if len(records) == 0 {
			break
		}

		ids := make([]uuid.UUID, len(records))
		for i := range records {
			ids[i] = records[i].ID
		}

		deleted, err := j.store.DeleteByIDs(ctx, domain.ActionTaskParamsType, ids)
		if err != nil {
			return res, fmt.Errorf("delete stale action_task_params: %w", err)
		}

		res.Batches++
		res.Deleted += deleted
		telemetry.JanitorDeleted.Add(float64(deleted))

		if len(records) < j.batchSize {
			break
		}
	}

	if res.Deleted > 0 {
		j.logger.Info("janitor tick completed",
			"deleted", res.Deleted,
			"batches", res.Batches,
			"older_than", before,
		)
	}

	return res, nil
}

// Start запускает Tick по расписанию. Ошибки тиков только логируются.
func (j *Janitor) Start(ctx context.Context) {
	j.cron = cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC))

	// Schedule уже проверен в New
	_, _ = j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Tick(ctx); err != nil {
			j.logger.Error("janitor tick failed", "error", err)
		}
	})

	j.cron.Start()
	j.logger.Info("janitor started", "schedule", j.schedule, "max_age", j.maxAge)
}

// Stop останавливает расписание и ждёт текущий тик.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}
