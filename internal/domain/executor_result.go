package domain

import "time"

// RetryHint — сигнал executor'а о повторной попытке.
//
// Либо простой флаг Retry, либо конкретное время RetryAt, раньше которого
// повторять бессмысленно (например, из заголовка Retry-After).
// nil вместо RetryHint означает "executor не высказался".
type RetryHint struct {
	Retry   bool       `json:"retry,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// RetryAfter возвращает RetryHint с конкретным временем.
func RetryAfter(at time.Time) *RetryHint {
	return &RetryHint{Retry: true, RetryAt: &at}
}

// RetryNow возвращает RetryHint с флагом Retry=true.
func RetryNow() *RetryHint {
	return &RetryHint{Retry: true}
}

// NoRetry возвращает явный отказ от повторной попытки.
func NoRetry() *RetryHint {
	return &RetryHint{Retry: false}
}

// ShouldRetry возвращает true, если hint разрешает повтор.
// nil hint — повтор не разрешён.
func (h *RetryHint) ShouldRetry() bool {
	if h == nil {
		return false
	}
	return h.Retry || h.RetryAt != nil
}

// ExecutorResult — результат выполнения action внешним executor'ом.
type ExecutorResult struct {
	// Status — "ok" или "error".
	Status ExecutorStatus `json:"status"`

	// ActionID — ID выполненного action.
	ActionID string `json:"action_id"`

	// Message — сообщение для пользователя (при ошибке).
	Message string `json:"message,omitempty"`

	// ServiceMessage — техническая причина ошибки от сервиса.
	ServiceMessage string `json:"service_message,omitempty"`

	// Data — данные, возвращённые action.
	Data any `json:"data,omitempty"`

	// Retry — сигнал о повторной попытке (только для ошибок).
	Retry *RetryHint `json:"retry,omitempty"`
}

// OK создаёт успешный результат.
func OK(actionID string, data any) *ExecutorResult {
	return &ExecutorResult{Status: ExecutorStatusOK, ActionID: actionID, Data: data}
}

// Failed создаёт результат с ошибкой.
func Failed(actionID, message string, retry *RetryHint) *ExecutorResult {
	return &ExecutorResult{
		Status:   ExecutorStatusError,
		ActionID: actionID,
		Message:  message,
		Retry:    retry,
	}
}
