package domain

// ExecutorStatus — статус результата выполнения action.
//
// Значимо только "error"; любое другое значение считается успехом.
type ExecutorStatus string

const (
	// ExecutorStatusOK — action выполнен.
	ExecutorStatusOK ExecutorStatus = "ok"

	// ExecutorStatusError — action завершился ошибкой.
	ExecutorStatusError ExecutorStatus = "error"
)

// IsError возвращает true, если статус означает ошибку выполнения.
func (s ExecutorStatus) IsError() bool {
	return s == ExecutorStatusError
}

// String возвращает строковое представление ExecutorStatus.
func (s ExecutorStatus) String() string {
	return string(s)
}
