package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/savedobjects"
)

// ActionExecutor выполняет сохранённый action.
type ActionExecutor interface {
	Execute(ctx context.Context, opts actions.ExecuteOptions) (*domain.ExecutorResult, error)
}

// EncryptedObjectsClient читает зашифрованные saved objects от имени системы.
type EncryptedObjectsClient interface {
	GetDecryptedAsInternalUser(ctx context.Context, objectType, id string, opts savedobjects.GetOptions) (*domain.SavedObject, error)
}

// ScopedClient — клиент хранилища, привязанный к запросу.
type ScopedClient interface {
	Delete(ctx context.Context, objectType, id string) error
}

// RunnerContext — зависимости, общие для всех Runner'ов процесса.
//
// Задаётся один раз через Factory.Initialize и дальше не меняется.
type RunnerContext struct {
	// Logger — логгер (если nil — slog.Default()).
	Logger *slog.Logger

	// EncryptedObjects — чтение action_task_params с расшифровкой.
	EncryptedObjects EncryptedObjectsClient

	// SpaceIDToNamespace — space → namespace хранилища.
	SpaceIDToNamespace func(spaceID string) string

	// GetBasePath — space → base path.
	GetBasePath func(spaceID string) string

	// GetScopedClient — клиент хранилища для запроса.
	GetScopedClient func(req savedobjects.Request) ScopedClient
}

func (rc RunnerContext) validate() error {
	switch {
	case rc.EncryptedObjects == nil:
		return fmt.Errorf("%w: encrypted objects client is required", ErrIncompleteContext)
	case rc.SpaceIDToNamespace == nil:
		return fmt.Errorf("%w: space id to namespace function is required", ErrIncompleteContext)
	case rc.GetBasePath == nil:
		return fmt.Errorf("%w: base path function is required", ErrIncompleteContext)
	case rc.GetScopedClient == nil:
		return fmt.Errorf("%w: scoped client factory is required", ErrIncompleteContext)
	}
	return nil
}

// Factory создаёт Runner'ы для task'ов.
//
// Единственное изменяемое состояние — указатель на RunnerContext,
// который записывается ровно один раз.
type Factory struct {
	executor ActionExecutor
	rc       atomic.Pointer[RunnerContext]
}

// NewFactory создаёт Factory с executor'ом. Executor задаётся только здесь.
func NewFactory(executor ActionExecutor) *Factory {
	return &Factory{executor: executor}
}

// Initialize сохраняет RunnerContext.
//
// Возвращает ErrAlreadyInitialized при повторном вызове
// и ErrIncompleteContext, если не хватает зависимостей
// (Factory при этом остаётся неинициализированной).
func (f *Factory) Initialize(rc RunnerContext) error {
	if f.rc.Load() != nil {
		return ErrAlreadyInitialized
	}
	if f.executor == nil {
		return fmt.Errorf("%w: action executor is required", ErrIncompleteContext)
	}
	if err := rc.validate(); err != nil {
		return err
	}
	if rc.Logger == nil {
		rc.Logger = slog.Default()
	}

	if !f.rc.CompareAndSwap(nil, &rc) {
		return ErrAlreadyInitialized
	}
	return nil
}

// IsInitialized возвращает true после успешного Initialize.
func (f *Factory) IsInitialized() bool {
	return f.rc.Load() != nil
}

// Create возвращает Runner для task. I/O не выполняется.
func (f *Factory) Create(ref domain.TaskReference) (*Runner, error) {
	rc := f.rc.Load()
	if rc == nil {
		return nil, ErrNotInitialized
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		ref:      ref,
		rc:       rc,
		executor: f.executor,
	}, nil
}

// RunTask создаёт Runner для ref и сразу выполняет его.
func (f *Factory) RunTask(ctx context.Context, ref domain.TaskReference) error {
	runner, err := f.Create(ref)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
