package actions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/shaiso/actions/internal/domain"
)

// ActionType — реализация типа action.
type ActionType interface {
	// ID — идентификатор типа (".webhook").
	ID() string

	// Name — имя типа для людей.
	Name() string

	// ValidateConfig проверяет config и secrets сохранённого action.
	ValidateConfig(config, secrets map[string]any) error

	// ValidateParams проверяет параметры вызова.
	ValidateParams(params map[string]any) error

	// Execute выполняет action. error — только при нарушении контракта;
	// ошибки выполнения возвращаются в результате.
	Execute(ctx context.Context, opts TypeExecutorOptions) (*domain.ExecutorResult, error)
}

// TypeExecutorOptions — входные данные для ActionType.Execute.
type TypeExecutorOptions struct {
	ActionID string
	Config   map[string]any
	Secrets  map[string]any
	Params   map[string]any
	Logger   *slog.Logger
}

// Registry — реестр типов action.
type Registry struct {
	types map[string]ActionType
}

// NewRegistry создаёт реестр со встроенными типами: .webhook, .server-log.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]ActionType)}
	r.Register(NewWebhookType(http.DefaultClient))
	r.Register(&ServerLogType{})
	return r
}

// Register добавляет тип. Тип с тем же ID заменяется.
func (r *Registry) Register(t ActionType) {
	r.types[t.ID()] = t
}

// Get возвращает тип по ID.
func (r *Registry) Get(typeID string) (ActionType, error) {
	t, ok := r.types[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, typeID)
	}
	return t, nil
}

// List возвращает ID зарегистрированных типов по алфавиту.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
