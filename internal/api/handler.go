package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/actions/internal/actions"
)

// readyTimeout — сколько ждём все проверки /readyz.
const readyTimeout = 2 * time.Second

// HealthCheck — проверка зависимости для /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler — обработчик служебных маршрутов.
type Handler struct {
	checks   []HealthCheck
	registry *actions.Registry
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Checks   []HealthCheck
	Registry *actions.Registry // если nil — actions.NewRegistry()
	Logger   *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = actions.NewRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		checks:   cfg.Checks,
		registry: registry,
		logger:   logger,
	}
}

// Healthz — процесс жив.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz выполняет все проверки. 503, если хотя бы одна не прошла.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			ready = false
			results[c.Name] = err.Error()
			h.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			continue
		}
		results[c.Name] = "ok"
	}

	if !ready {
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "dependencies unavailable", results)
		return
	}
	writeData(w, results)
}

// ActionTypeResponse — тип action в ответе API.
type ActionTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListActionTypes возвращает зарегистрированные типы actions.
func (h *Handler) ListActionTypes(w http.ResponseWriter, _ *http.Request) {
	ids := h.registry.List()
	types := make([]ActionTypeResponse, 0, len(ids))
	for _, id := range ids {
		t, err := h.registry.Get(id)
		if err != nil {
			writeInternalError(w, h.logger, err)
			return
		}
		types = append(types, ActionTypeResponse{ID: id, Name: t.Name()})
	}

	writeList(w, types, len(types))
}
