// Package mq — транспорт action tasks поверх RabbitMQ.
//
// Publisher ставит ссылки на tasks в actions.tasks.run и публикует итоги
// в actions.tasks.completed. Публикация подтверждается брокером.
// Consumer разбирает конверт и по ошибке Handler решает судьбу доставки
// (Settle): ack, возврат в очередь или dead-letter в dlq.actions.tasks.
//
// Параметры tasks в очередь не попадают: сообщение несёт только
// space и ID записи action_task_params.
package mq
