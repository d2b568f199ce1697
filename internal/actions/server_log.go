package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/actions/internal/domain"
)

// ServerLogTypeID — ID типа server-log.
const ServerLogTypeID = ".server-log"

// ServerLogType — action типа ".server-log": пишет сообщение в лог сервера.
//
// Params:
//   - message (string): сообщение (обязательно)
//   - level (string): debug, info, warn, error. Default: info
type ServerLogType struct{}

// ID реализует ActionType.
func (t *ServerLogType) ID() string { return ServerLogTypeID }

// Name реализует ActionType.
func (t *ServerLogType) Name() string { return "Server log" }

// ValidateConfig реализует ActionType. Конфигурации нет.
func (t *ServerLogType) ValidateConfig(_, _ map[string]any) error { return nil }

// ValidateParams реализует ActionType.
func (t *ServerLogType) ValidateParams(params map[string]any) error {
	if getString(params, "message", "") == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidParams)
	}
	if _, ok := parseLogLevel(getString(params, "level", "info")); !ok {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidParams, params["level"])
	}
	return nil
}

// Execute пишет сообщение в лог.
func (t *ServerLogType) Execute(ctx context.Context, opts TypeExecutorOptions) (*domain.ExecutorResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level, _ := parseLogLevel(getString(opts.Params, "level", "info"))
	logger.Log(ctx, level, "server log action", "message", getString(opts.Params, "message", ""))

	return domain.OK(opts.ActionID, nil), nil
}

func parseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
