package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/enqueue"
	"github.com/shaiso/actions/internal/janitor"
)

// ActionCreator создаёт сохранённые actions (enqueue.Enqueuer).
type ActionCreator interface {
	CreateAction(ctx context.Context, req enqueue.CreateActionRequest) (*domain.SavedObject, error)
}

// TaskEnqueuer ставит tasks в очередь (enqueue.Enqueuer).
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, req enqueue.EnqueueRequest) (domain.TaskReference, error)
}

// JanitorRunner выполняет одну уборку (janitor.Janitor).
type JanitorRunner interface {
	Tick(ctx context.Context) (janitor.Result, error)
}

// Services — зависимости команд.
type Services struct {
	Actions ActionCreator
	Tasks   TaskEnqueuer
	Janitor JanitorRunner

	// Close освобождает соединения (может быть nil).
	Close func()
}

// ServicesFn создаёт Services после разбора флагов.
type ServicesFn func(ctx context.Context) (*Services, error)

// withServices создаёт Services, вызывает fn и закрывает соединения.
func withServices(ctx context.Context, servicesFn ServicesFn, fn func(s *Services) error) error {
	s, err := servicesFn(ctx)
	if err != nil {
		return err
	}
	if s.Close != nil {
		defer s.Close()
	}
	return fn(s)
}

// parseKeyValues разбирает флаги KEY=VALUE в map.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid value %q, expected KEY=VALUE", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}
