package taskrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/spaces"
)

func TestRunner_Success(t *testing.T) {
	h := newHarness(t)
	ref := h.storeParams(t, "ops", "p1", domain.ActionTaskParams{
		ActionID: "a1",
		Params:   map[string]any{"message": "hi"},
		APIKey:   "abc",
	})

	err := h.run(t, ref)
	require.NoError(t, err)

	// Параметры читаются из namespace space'а
	assert.Equal(t, []string{"ops"}, h.encrypted.gotNamespaces)

	require.Equal(t, 1, h.executor.count())
	call := h.executor.calls[0]
	assert.Equal(t, "a1", call.ActionID)
	assert.Equal(t, map[string]any{"message": "hi"}, call.Params)

	req, ok := call.Request.(*SyntheticRequest)
	require.True(t, ok)
	assert.Equal(t, "ApiKey abc", req.Headers["authorization"])
	assert.Equal(t, "/s/ops", req.GetBasePath())

	require.Equal(t, 1, h.scoped.count())
	del := h.scoped.deletes[0]
	assert.Equal(t, domain.ActionTaskParamsType, del.objectType)
	assert.Equal(t, "p1", del.id)
	assert.Equal(t, "/s/ops", del.basePath)
}

func TestRunner_WithoutAPIKey(t *testing.T) {
	h := newHarness(t)
	ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

	require.NoError(t, h.run(t, ref))

	req := h.executor.calls[0].Request.(*SyntheticRequest)
	assert.Empty(t, req.Headers)
	assert.Empty(t, req.Authorization())
	assert.Equal(t, []string{""}, h.encrypted.gotNamespaces, "default space maps to the empty namespace")
	assert.Equal(t, 1, h.scoped.count())
}

func TestRunner_ErrorClassification(t *testing.T) {
	retryAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name          string
		result        *domain.ExecutorResult
		wantRetryable bool
		wantRetryAt   *time.Time
	}{
		{
			name:          "retry requested",
			result:        domain.Failed("a1", "service unavailable", domain.RetryNow()),
			wantRetryable: true,
		},
		{
			name:          "retry at a time",
			result:        domain.Failed("a1", "rate limited", domain.RetryAfter(retryAt)),
			wantRetryable: true,
			wantRetryAt:   &retryAt,
		},
		{
			name:          "retry not signalled",
			result:        domain.Failed("a1", "bad request", nil),
			wantRetryable: false,
		},
		{
			name:          "retry explicitly refused",
			result:        domain.Failed("a1", "bad request", domain.NoRetry()),
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.result.Data = map[string]any{"status_code": 503}
			h.executor.result = tt.result
			ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

			err := h.run(t, ref)

			execErr, ok := AsExecutorError(err)
			require.True(t, ok, "expected *ExecutorError, got %v", err)
			assert.Equal(t, tt.result.Message, execErr.Message)
			assert.Equal(t, tt.result.Message, execErr.Error())
			assert.Equal(t, tt.result.Data, execErr.Data)
			assert.Equal(t, tt.wantRetryable, execErr.Retryable)
			assert.Equal(t, tt.wantRetryable, IsRetryable(err))
			if tt.wantRetryAt != nil {
				require.NotNil(t, execErr.RetryAt)
				assert.True(t, tt.wantRetryAt.Equal(*execErr.RetryAt))
			} else {
				assert.Nil(t, execErr.RetryAt)
			}

			assert.Equal(t, 1, h.scoped.count())
		})
	}
}

func TestRunner_ExecutorContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.ExecutorResult
		err    error
	}{
		{name: "go error", err: errors.New("executor crashed")},
		{name: "nil result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.executor.result = tt.result
			h.executor.err = tt.err
			ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

			err := h.run(t, ref)

			execErr, ok := AsExecutorError(err)
			require.True(t, ok)
			assert.False(t, execErr.Retryable)
			assert.NotEmpty(t, execErr.Message)
			assert.Equal(t, 1, h.scoped.count())
		})
	}
}

func TestRunner_CleanupFailureIsSwallowed(t *testing.T) {
	t.Run("after success", func(t *testing.T) {
		h := newHarness(t)
		h.scoped.err = errors.New("store unavailable")
		ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

		require.NoError(t, h.run(t, ref))

		assert.Equal(t, 1, h.scoped.count())
		assert.Contains(t, h.logs.String(), "failed to cleanup action_task_params object")
		assert.Contains(t, h.logs.String(), "p1")
	})

	t.Run("after failure", func(t *testing.T) {
		h := newHarness(t)
		h.scoped.err = errors.New("store unavailable")
		h.executor.result = domain.Failed("a1", "upstream down", domain.RetryNow())
		ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

		err := h.run(t, ref)

		execErr, ok := AsExecutorError(err)
		require.True(t, ok, "cleanup failure must not replace the executor error")
		assert.Equal(t, "upstream down", execErr.Message)
		assert.True(t, execErr.Retryable)
		assert.Equal(t, 1, h.scoped.count())
		assert.Contains(t, h.logs.String(), "failed to cleanup action_task_params object")
	})
}

func TestRunner_DecryptFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: repo.ErrNotFound},
		{name: "decrypt", err: encryption.ErrDecrypt},
		{name: "storage", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.encrypted.err = tt.err

			err := h.run(t, domain.TaskReference{SpaceID: "ops", ActionTaskParamsID: "p1"})

			assert.Same(t, tt.err, err, "decrypt error is returned unchanged")
			_, isExecErr := AsExecutorError(err)
			assert.False(t, isExecErr)
			assert.Zero(t, h.executor.count())
			assert.Zero(t, h.scoped.count())
		})
	}
}

func TestRunner_MissingParams(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, domain.TaskReference{SpaceID: "ops", ActionTaskParamsID: "missing"})

	require.ErrorIs(t, err, repo.ErrNotFound)
	assert.Zero(t, h.executor.count())
	assert.Zero(t, h.scoped.count())
}

func TestRunner_MalformedParams(t *testing.T) {
	h := newHarness(t)
	h.storeRaw("", "p1", []byte(`{"actionId": 42}`))

	err := h.run(t, domain.TaskReference{ActionTaskParamsID: "p1"})

	require.ErrorIs(t, err, ErrMalformedParams)
	assert.False(t, IsRetryable(err))
	assert.Zero(t, h.executor.count())
	assert.Equal(t, 1, h.scoped.count(), "decrypted params are still cleaned up")
}

func TestRunner_SingleUse(t *testing.T) {
	h := newHarness(t)
	ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

	runner, err := h.factory.Create(ref)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))
	require.ErrorIs(t, runner.Run(context.Background()), ErrRunnerConsumed)

	assert.Equal(t, 1, h.executor.count())
	assert.Equal(t, 1, h.scoped.count())
}

func TestRunner_CleanupSurvivesCancellation(t *testing.T) {
	h := newHarness(t)
	ref := h.storeParams(t, "", "p1", domain.ActionTaskParams{ActionID: "a1"})

	ctx, cancel := context.WithCancel(context.Background())
	// Планировщик отменяет task во время выполнения
	h.executor.before = func(context.Context) { cancel() }

	runner, err := h.factory.Create(ref)
	require.NoError(t, err)
	require.NoError(t, runner.Run(ctx))

	require.Equal(t, 1, h.scoped.count())
	assert.NoError(t, h.scoped.deletes[0].ctxErr)
}

func TestRunner_CleanupNamespaceMatchesDecrypt(t *testing.T) {
	for _, spaceID := range []string{"", "default", "ops", "team-a_1"} {
		t.Run("space="+spaceID, func(t *testing.T) {
			h := newHarness(t)
			ref := h.storeParams(t, spaceID, "p1", domain.ActionTaskParams{ActionID: "a1", APIKey: "abc"})

			store := &recordingStore{}
			resolver := spaces.NewBasePathResolver("/kbn")
			clients := savedobjects.NewClientFactory(store, resolver, discardLogger())

			f := NewFactory(h.executor)
			require.NoError(t, f.Initialize(RunnerContext{
				Logger:             discardLogger(),
				EncryptedObjects:   h.encrypted,
				SpaceIDToNamespace: spaces.SpaceIDToNamespace,
				GetBasePath:        resolver.GetBasePath,
				GetScopedClient: func(req savedobjects.Request) ScopedClient {
					return clients.GetScopedClient(req)
				},
			}))

			require.NoError(t, f.RunTask(context.Background(), ref))

			require.Len(t, h.encrypted.gotNamespaces, 1)
			assert.Equal(t, h.encrypted.gotNamespaces, store.deleteNamespaces)
		})
	}
}

func TestFactory_CreateRejectsInvalidSpaceID(t *testing.T) {
	h := newHarness(t)

	for _, spaceID := range []string{"Ops", "team.a", "../ops"} {
		_, err := h.factory.Create(domain.TaskReference{SpaceID: spaceID, ActionTaskParamsID: "p1"})
		require.ErrorIs(t, err, domain.ErrInvalidTaskReference, spaceID)
	}
	assert.Zero(t, h.encrypted.calls)
	assert.Zero(t, h.scoped.count())
}

func TestRunner_NilDecryptedObject(t *testing.T) {
	h := newHarness(t)
	scoped := &fakeScoped{}

	f := NewFactory(h.executor)
	require.NoError(t, f.Initialize(RunnerContext{
		Logger: discardLogger(),
		EncryptedObjects: decryptFunc(func(context.Context, string, string, savedobjects.GetOptions) (*domain.SavedObject, error) {
			return nil, nil
		}),
		SpaceIDToNamespace: spaces.SpaceIDToNamespace,
		GetBasePath:        spaces.NewBasePathResolver("").GetBasePath,
		GetScopedClient:    scoped.clientFor,
	}))

	err := f.RunTask(context.Background(), domain.TaskReference{ActionTaskParamsID: "p1"})

	require.ErrorIs(t, err, ErrMalformedParams)
	assert.Zero(t, h.executor.count())
	assert.Equal(t, 1, scoped.count(), "params are cleaned up after a successful read")
}
