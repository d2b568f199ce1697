package taskrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/spaces"
)

// fakeEncrypted отдаёт заранее заданные action_task_params.
type fakeEncrypted struct {
	mu      sync.Mutex
	objects map[string]*domain.SavedObject // key: namespace|id
	err     error

	calls         int
	gotNamespaces []string
}

func (f *fakeEncrypted) GetDecryptedAsInternalUser(_ context.Context, objectType, id string, opts savedobjects.GetOptions) (*domain.SavedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotNamespaces = append(f.gotNamespaces, opts.Namespace)
	if f.err != nil {
		return nil, f.err
	}
	obj, ok := f.objects[opts.Namespace+"|"+id]
	if !ok || obj.Type != objectType {
		return nil, repo.ErrNotFound
	}
	return obj, nil
}

// fakeScoped записывает удаления.
type fakeScoped struct {
	mu      sync.Mutex
	err     error
	deletes []deleteCall
}

type deleteCall struct {
	objectType string
	id         string
	basePath   string
	ctxErr     error
}

func (f *fakeScoped) clientFor(req savedobjects.Request) ScopedClient {
	return scopedFunc(func(ctx context.Context, objectType, id string) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes = append(f.deletes, deleteCall{
			objectType: objectType,
			id:         id,
			basePath:   req.GetBasePath(),
			ctxErr:     ctx.Err(),
		})
		return f.err
	})
}

func (f *fakeScoped) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

type scopedFunc func(ctx context.Context, objectType, id string) error

func (fn scopedFunc) Delete(ctx context.Context, objectType, id string) error {
	return fn(ctx, objectType, id)
}

// fakeExecutor возвращает заданный результат и запоминает вызовы.
type fakeExecutor struct {
	mu     sync.Mutex
	result *domain.ExecutorResult
	err    error
	before func(ctx context.Context)

	calls []actions.ExecuteOptions
}

func (f *fakeExecutor) Execute(ctx context.Context, opts actions.ExecuteOptions) (*domain.ExecutorResult, error) {
	if f.before != nil {
		f.before(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	return f.result, f.err
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// harness собирает Factory на фейках.
type harness struct {
	encrypted *fakeEncrypted
	scoped    *fakeScoped
	executor  *fakeExecutor
	logs      *bytes.Buffer
	factory   *Factory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		encrypted: &fakeEncrypted{objects: make(map[string]*domain.SavedObject)},
		scoped:    &fakeScoped{},
		executor:  &fakeExecutor{result: domain.OK("a1", nil)},
		logs:      &bytes.Buffer{},
	}

	resolver := spaces.NewBasePathResolver("")
	h.factory = NewFactory(h.executor)
	require.NoError(t, h.factory.Initialize(RunnerContext{
		Logger:             slog.New(slog.NewTextHandler(h.logs, nil)),
		EncryptedObjects:   h.encrypted,
		SpaceIDToNamespace: spaces.SpaceIDToNamespace,
		GetBasePath:        resolver.GetBasePath,
		GetScopedClient:    h.scoped.clientFor,
	}))
	return h
}

// storeParams кладёт action_task_params в фейковое хранилище.
func (h *harness) storeParams(t *testing.T, spaceID, id string, params domain.ActionTaskParams) domain.TaskReference {
	t.Helper()
	attrs, err := json.Marshal(params)
	require.NoError(t, err)
	h.storeRaw(spaceID, id, attrs)
	return domain.TaskReference{SpaceID: spaceID, ActionTaskParamsID: id}
}

func (h *harness) storeRaw(spaceID, id string, attrs []byte) {
	namespace := spaces.SpaceIDToNamespace(spaceID)
	h.encrypted.objects[namespace+"|"+id] = &domain.SavedObject{
		ID:         id,
		Type:       domain.ActionTaskParamsType,
		Namespace:  namespace,
		Attributes: attrs,
	}
}

func (h *harness) run(t *testing.T, ref domain.TaskReference) error {
	t.Helper()
	runner, err := h.factory.Create(ref)
	require.NoError(t, err)
	return runner.Run(context.Background())
}

// decryptFunc — EncryptedObjectsClient из функции.
type decryptFunc func(ctx context.Context, objectType, id string, opts savedobjects.GetOptions) (*domain.SavedObject, error)

func (fn decryptFunc) GetDecryptedAsInternalUser(ctx context.Context, objectType, id string, opts savedobjects.GetOptions) (*domain.SavedObject, error) {
	return fn(ctx, objectType, id, opts)
}

// recordingStore — savedobjects.Store, запоминающий namespace удалений.
type recordingStore struct {
	mu               sync.Mutex
	deleteNamespaces []string
}

func (s *recordingStore) Create(context.Context, *repo.Record) error { return nil }

func (s *recordingStore) Get(context.Context, string, string, string) (*repo.Record, error) {
	return nil, repo.ErrNotFound
}

func (s *recordingStore) Delete(_ context.Context, _, _, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteNamespaces = append(s.deleteNamespaces, namespace)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
