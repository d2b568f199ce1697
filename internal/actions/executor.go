package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/spaces"
	"github.com/shaiso/actions/internal/telemetry"
)

// ExecuteOptions — запрос на выполнение сохранённого action.
type ExecuteOptions struct {
	// ActionID — ID сохранённого action.
	ActionID string

	// Params — параметры вызова.
	Params map[string]any

	// Request — запрос, от имени которого выполняется action.
	// По его base path определяется space.
	Request savedobjects.Request
}

// ActionLoader читает action с расшифрованными secrets.
type ActionLoader interface {
	GetDecryptedAsInternalUser(ctx context.Context, objectType, id string, opts savedobjects.GetOptions) (*domain.SavedObject, error)
}

// Executor выполняет сохранённые actions.
type Executor struct {
	registry  *Registry
	loader    ActionLoader
	basePaths *spaces.BasePathResolver
	logger    *slog.Logger
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Registry — реестр типов (если nil — NewRegistry()).
	Registry *Registry

	// Loader — чтение actions.
	Loader ActionLoader

	// BasePaths — разбор base path (если nil — без префикса сервера).
	BasePaths *spaces.BasePathResolver

	// Logger
	Logger *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	basePaths := cfg.BasePaths
	if basePaths == nil {
		basePaths = spaces.NewBasePathResolver("")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		registry:  registry,
		loader:    cfg.Loader,
		basePaths: basePaths,
		logger:    logger,
	}
}

// Execute загружает action и выполняет его.
//
// Ожидаемые ошибки возвращаются как результат со Status "error".
func (e *Executor) Execute(ctx context.Context, opts ExecuteOptions) (*domain.ExecutorResult, error) {
	if opts.Request == nil {
		return nil, errors.New("execute action: request is required")
	}

	namespace := e.basePaths.NamespaceFromPath(opts.Request.GetBasePath())
	logger := telemetry.WithActionID(e.logger, opts.ActionID).With("namespace", namespace)

	// 1. Загружаем action
	obj, err := e.loader.GetDecryptedAsInternalUser(ctx, domain.ActionType, opts.ActionID, savedobjects.GetOptions{Namespace: namespace})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, encryption.ErrDecrypt) {
			return domain.Failed(opts.ActionID, fmt.Sprintf("unable to load action: %v", err), nil), nil
		}
		// Хранилище недоступно — временный сбой
		return domain.Failed(opts.ActionID, fmt.Sprintf("unable to load action: %v", err), domain.RetryNow()), nil
	}

	var action domain.Action
	if err := obj.DecodeAttributes(&action); err != nil {
		return domain.Failed(opts.ActionID, err.Error(), nil), nil
	}

	// 2. Находим тип
	actionType, err := e.registry.Get(action.ActionTypeID)
	if err != nil {
		return domain.Failed(opts.ActionID, err.Error(), nil), nil
	}

	// 3. Проверяем config и params
	if err := actionType.ValidateConfig(action.Config, action.Secrets); err != nil {
		return domain.Failed(opts.ActionID, fmt.Sprintf("error validating action type config: %v", err), nil), nil
	}
	if err := actionType.ValidateParams(opts.Params); err != nil {
		return domain.Failed(opts.ActionID, fmt.Sprintf("error validating action params: %v", err), nil), nil
	}

	// 4. Выполняем
	logger.Debug("executing action", "action_type", action.ActionTypeID, "name", action.Name)

	start := time.Now()
	result, err := actionType.Execute(ctx, TypeExecutorOptions{
		ActionID: opts.ActionID,
		Config:   action.Config,
		Secrets:  action.Secrets,
		Params:   opts.Params,
		Logger:   logger,
	})
	telemetry.ExecutorDuration.WithLabelValues(action.ActionTypeID).Observe(time.Since(start).Seconds())

	if err != nil {
		return domain.Failed(opts.ActionID, fmt.Sprintf("action %s failed: %v", action.Name, err), nil), nil
	}
	if result == nil {
		result = domain.OK(opts.ActionID, nil)
	}
	if result.ActionID == "" {
		result.ActionID = opts.ActionID
	}

	return result, nil
}
