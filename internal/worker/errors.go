package worker

import "errors"

var (
	// ErrInvalidMessage — payload action.task.run не разбирается или без ссылки на параметры.
	ErrInvalidMessage = errors.New("invalid action.task.run message")

	// ErrAlreadyStarted — повторный Start.
	ErrAlreadyStarted = errors.New("worker already started")
)
