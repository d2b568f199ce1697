// Package janitor удаляет забытые action_task_params.
//
// Runner удаляет параметры task после каждого выполнения, но ошибка удаления
// только логируется. Janitor по расписанию (cron) находит записи старше
// MaxAge и удаляет их пачками.
//
// Структура:
//   - janitor.go — Janitor (Tick, Start, Stop)
//   - cron.go    — разбор cron-выражений
//
// Использование:
//
//	j, err := janitor.New(janitor.Config{
//	    Store:    savedObjectRepo,
//	    Locker:   repo.NewAdvisoryLocker(pool, janitor.LockKey),
//	    Schedule: "*/15 * * * *",
//	    MaxAge:   24 * time.Hour,
//	    Logger:   logger,
//	})
//
//	j.Start(ctx)
//	defer j.Stop()
//
// Leader Election:
//
// Tick выполняется только тем экземпляром, который взял
// pg_try_advisory_lock. Остальные пропускают тик.
package janitor
