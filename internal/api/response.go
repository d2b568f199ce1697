package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorCode — машиночитаемый код ошибки.
type ErrorCode string

const (
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotReady      ErrorCode = "NOT_READY"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — описание ошибки. Details для /readyz — результаты проверок.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// DataResponse — тело успешного ответа.
type DataResponse struct {
	Data  any  `json:"data"`
	Total *int `json:"total,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

func writeList(w http.ResponseWriter, items any, total int) {
	writeJSON(w, http.StatusOK, DataResponse{Data: items, Total: &total})
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// writeInternalError логирует err и отвечает 500 без подробностей.
func writeInternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error", nil)
}
