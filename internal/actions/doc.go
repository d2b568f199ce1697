// Package actions выполняет сохранённые actions (connectors).
//
// # Обзор
//
// Action — сохранённая конфигурация вызова внешней системы: тип, config
// и зашифрованные secrets. Executor загружает action из namespace space'а,
// определённого по base path запроса, проверяет параметры и вызывает
// реализацию типа.
//
// # Ключевые компоненты
//
// ## ActionType
//
// Интерфейс реализации типа action:
//
//	type ActionType interface {
//	    ID() string
//	    Name() string
//	    ValidateConfig(config, secrets map[string]any) error
//	    ValidateParams(params map[string]any) error
//	    Execute(ctx context.Context, opts TypeExecutorOptions) (*domain.ExecutorResult, error)
//	}
//
// Реализации:
//   - WebhookType (".webhook") — HTTP-запрос на URL из config
//   - ServerLogType (".server-log") — запись сообщения в лог сервера
//
// ## Registry
//
// Реестр типов. NewRegistry() регистрирует встроенные типы.
//
// # Ошибки
//
// Executor не возвращает error для ожидаемых ситуаций: action не найден,
// параметры невалидны, тип неизвестен — всё это результат со Status "error".
// Сигнал о повторе выставляется только для временных сбоев
// (сеть, 429, 5xx, недоступность хранилища).
package actions
