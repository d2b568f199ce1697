package taskrunner

import "github.com/shaiso/actions/internal/domain"

// Outcome — исход выполнения task.
type Outcome int

const (
	// OutcomeSuccess — action выполнен.
	OutcomeSuccess Outcome = iota

	// OutcomeRetryable — ошибка, task можно повторить.
	OutcomeRetryable

	// OutcomeFatal — ошибка, повторять нельзя.
	OutcomeFatal
)

// String возвращает имя исхода (совпадает с label метрик).
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Classify сводит результат executor'а к исходу.
//
// Ошибка без сигнала о повторе — Fatal. nil вместо результата — тоже Fatal:
// executor нарушил контракт.
func Classify(result *domain.ExecutorResult) Outcome {
	if result == nil {
		return OutcomeFatal
	}
	if !result.Status.IsError() {
		return OutcomeSuccess
	}
	if result.Retry.ShouldRetry() {
		return OutcomeRetryable
	}
	return OutcomeFatal
}

// newExecutorError строит ошибку для планировщика по результату с ошибкой.
func newExecutorError(result *domain.ExecutorResult, outcome Outcome) *ExecutorError {
	execErr := &ExecutorError{Retryable: outcome == OutcomeRetryable}
	if result == nil {
		execErr.Message = "action executor returned no result"
		return execErr
	}

	execErr.Message = result.Message
	execErr.Data = result.Data
	if result.Retry != nil && result.Retry.RetryAt != nil {
		at := *result.Retry.RetryAt
		execErr.RetryAt = &at
	}
	return execErr
}
