package actions

import "errors"

// Ошибки actions.
var (
	// ErrUnknownActionType — тип action не зарегистрирован.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrInvalidConfig — config или secrets action невалидны.
	ErrInvalidConfig = errors.New("invalid action config")

	// ErrInvalidParams — параметры вызова невалидны.
	ErrInvalidParams = errors.New("invalid action params")
)
