// Package enqueue ставит action tasks в очередь.
//
// Enqueue сохраняет параметры вызова зашифрованной записью
// action_task_params в namespace space'а и публикует action.task.run
// со ссылкой на неё. Сами параметры и API ключ в очередь не попадают.
package enqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/spaces"
)

// ErrInvalidRequest — в запросе не хватает обязательных полей.
var ErrInvalidRequest = errors.New("invalid enqueue request")

// ObjectCreator создаёт зашифрованные saved objects (savedobjects.EncryptedClient).
type ObjectCreator interface {
	CreateEncrypted(ctx context.Context, objectType, namespace string, attrs map[string]any) (*domain.SavedObject, error)
}

// TaskPublisher публикует ссылки на tasks (mq.Publisher).
type TaskPublisher interface {
	PublishTaskRun(ctx context.Context, ref domain.TaskReference) error
}

// EnqueueRequest — запрос на отложенное выполнение action.
type EnqueueRequest struct {
	SpaceID  string         `json:"space_id,omitempty"`
	ActionID string         `json:"action_id"`
	Params   map[string]any `json:"params,omitempty"`
	APIKey   string         `json:"-"`
}

// CreateActionRequest — запрос на создание сохранённого action.
type CreateActionRequest struct {
	SpaceID      string
	ActionTypeID string
	Name         string
	Config       map[string]any
	Secrets      map[string]any
}

// Enqueuer ставит tasks в очередь и создаёт actions.
type Enqueuer struct {
	objects   ObjectCreator
	publisher TaskPublisher
	registry  *actions.Registry
	logger    *slog.Logger
}

// Config — конфигурация Enqueuer.
type Config struct {
	Objects   ObjectCreator
	Publisher TaskPublisher
	Registry  *actions.Registry // если nil — actions.NewRegistry()
	Logger    *slog.Logger
}

// New создаёт Enqueuer.
func New(cfg Config) *Enqueuer {
	registry := cfg.Registry
	if registry == nil {
		registry = actions.NewRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Enqueuer{
		objects:   cfg.Objects,
		publisher: cfg.Publisher,
		registry:  registry,
		logger:    logger,
	}
}

// Enqueue сохраняет параметры task и публикует ссылку на них.
//
// Если публикация не удалась, запись остаётся в хранилище
// и будет удалена janitor'ом.
func (e *Enqueuer) Enqueue(ctx context.Context, req EnqueueRequest) (domain.TaskReference, error) {
	if strings.TrimSpace(req.ActionID) == "" {
		return domain.TaskReference{}, fmt.Errorf("%w: action id is required", ErrInvalidRequest)
	}
	if err := validateSpace(req.SpaceID); err != nil {
		return domain.TaskReference{}, err
	}

	attrs := map[string]any{"actionId": req.ActionID}
	if len(req.Params) > 0 {
		attrs["params"] = req.Params
	}
	if req.APIKey != "" {
		attrs["apiKey"] = req.APIKey
	}

	obj, err := e.objects.CreateEncrypted(ctx, domain.ActionTaskParamsType, spaces.SpaceIDToNamespace(req.SpaceID), attrs)
	if err != nil {
		return domain.TaskReference{}, fmt.Errorf("create action_task_params: %w", err)
	}

	ref := domain.TaskReference{SpaceID: req.SpaceID, ActionTaskParamsID: obj.ID}
	if err := e.publisher.PublishTaskRun(ctx, ref); err != nil {
		return domain.TaskReference{}, fmt.Errorf("publish action.task.run: %w", err)
	}

	e.logger.Info("action task enqueued",
		"action_id", req.ActionID,
		"space_id", req.SpaceID,
		"action_task_params_id", obj.ID,
		"with_api_key", req.APIKey != "",
	)

	return ref, nil
}

// CreateAction проверяет config по типу и сохраняет action.
func (e *Enqueuer) CreateAction(ctx context.Context, req CreateActionRequest) (*domain.SavedObject, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if err := validateSpace(req.SpaceID); err != nil {
		return nil, err
	}

	actionType, err := e.registry.Get(req.ActionTypeID)
	if err != nil {
		return nil, err
	}
	if err := actionType.ValidateConfig(req.Config, req.Secrets); err != nil {
		return nil, err
	}

	attrs := map[string]any{
		"actionTypeId": req.ActionTypeID,
		"name":         req.Name,
	}
	if req.Config != nil {
		attrs["config"] = req.Config
	}
	if len(req.Secrets) > 0 {
		attrs["secrets"] = req.Secrets
	}

	obj, err := e.objects.CreateEncrypted(ctx, domain.ActionType, spaces.SpaceIDToNamespace(req.SpaceID), attrs)
	if err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}

	e.logger.Info("action created",
		"action_id", obj.ID,
		"action_type", req.ActionTypeID,
		"space_id", req.SpaceID,
	)
	return obj, nil
}

func validateSpace(spaceID string) error {
	if spaceID == "" {
		return nil
	}
	return spaces.ValidateSpaceID(spaceID)
}
