// Package worker выполняет action tasks из очереди.
//
// # Обзор
//
// Worker — stateless компонент, который:
//
//   - Получает ссылки на tasks из очереди actions.tasks.run
//   - Выполняет каждый task через taskrunner.Factory
//   - Публикует результат в actions.tasks.completed
//   - Решает судьбу сообщения: ack, requeue или DLQ
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди.
//
// # Использование
//
//	w := worker.New(worker.Config{
//	    Runner:    factory,
//	    Publisher: publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Обработка сообщения
//
//  1. Разбор payload (TaskReference)
//  2. Factory.RunTask: расшифровка параметров, выполнение, cleanup
//  3. Публикация action.task.completed
//  4. Settle сообщения
//
// # Settle
//
//   - успех — ack
//   - *taskrunner.ExecutorError — DLQ. Параметры task уже удалены,
//     повторная доставка ничего не выполнит. Решение о повторе принимает
//     планировщик по полям retryable и retry_at события completed.
//   - параметры не найдены — ack (task уже выполнен или удалён janitor'ом)
//   - повреждённое сообщение или параметры — DLQ
//   - прочие ошибки (БД недоступна) — requeue
//
// Повторов внутри процесса нет: backoff — забота планировщика.
package worker
