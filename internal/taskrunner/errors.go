package taskrunner

import (
	"errors"
	"time"
)

// Ошибки пакета.
var (
	// ErrAlreadyInitialized — Factory.Initialize вызван повторно.
	ErrAlreadyInitialized = errors.New("task runner factory already initialized")

	// ErrNotInitialized — Factory.Create вызван до Initialize.
	ErrNotInitialized = errors.New("task runner factory not initialized")

	// ErrIncompleteContext — в RunnerContext не хватает обязательной зависимости.
	ErrIncompleteContext = errors.New("incomplete task runner context")

	// ErrRunnerConsumed — Runner уже выполнялся.
	ErrRunnerConsumed = errors.New("task runner already consumed")

	// ErrMalformedParams — расшифрованные action_task_params не разбираются.
	ErrMalformedParams = errors.New("malformed action task params")
)

// ExecutorError — ошибка выполнения action, понятная планировщику.
//
// Единственный способ сообщить планировщику, что task можно повторить.
type ExecutorError struct {
	// Message — сообщение executor'а.
	Message string

	// Data — данные, вернувшиеся вместе с ошибкой.
	Data any

	// Retryable — можно ли повторить task.
	Retryable bool

	// RetryAt — раньше этого времени повторять не нужно (если задано).
	RetryAt *time.Time
}

// Error реализует error.
func (e *ExecutorError) Error() string {
	if e.Message == "" {
		return "action execution failed"
	}
	return e.Message
}

// IsRetryable возвращает true, если err содержит *ExecutorError с Retryable=true.
func IsRetryable(err error) bool {
	var execErr *ExecutorError
	return errors.As(err, &execErr) && execErr.Retryable
}

// AsExecutorError извлекает *ExecutorError из цепочки ошибок.
func AsExecutorError(err error) (*ExecutorError, bool) {
	var execErr *ExecutorError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}
