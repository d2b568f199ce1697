package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/mq"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/taskrunner"
)

type fakeRunner struct {
	err  error
	refs []domain.TaskReference
}

func (r *fakeRunner) RunTask(_ context.Context, ref domain.TaskReference) error {
	r.refs = append(r.refs, ref)
	return r.err
}

type fakePublisher struct {
	err      error
	payloads []mq.TaskCompletedPayload
}

func (p *fakePublisher) PublishTaskCompleted(_ context.Context, payload mq.TaskCompletedPayload) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func newTestWorker(runner *fakeRunner, publisher *fakePublisher) *Worker {
	return New(Config{
		Runner:    runner,
		Publisher: publisher,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func runDelivery(t *testing.T, payload any) *mq.Delivery {
	t.Helper()
	msg, err := mq.NewMessage(mq.MessageTypeTaskRun, payload)
	require.NoError(t, err)
	return &mq.Delivery{Message: *msg}
}

var testRef = domain.TaskReference{SpaceID: "ops", ActionTaskParamsID: "p1"}

func TestHandleTaskRun_Success(t *testing.T) {
	runner := &fakeRunner{}
	publisher := &fakePublisher{}
	w := newTestWorker(runner, publisher)

	err := w.handleTaskRun(context.Background(), runDelivery(t, map[string]any{
		"space_id":              "ops",
		"action_task_params_id": "p1",
	}))
	require.NoError(t, err)

	assert.Equal(t, []domain.TaskReference{testRef}, runner.refs)
	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, "success", publisher.payloads[0].Outcome)
	assert.False(t, publisher.payloads[0].Retryable)
}

func TestHandleTaskRun_ExecutorErrors(t *testing.T) {
	retryAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name        string
		err         *taskrunner.ExecutorError
		wantOutcome string
	}{
		{
			name:        "retryable",
			err:         &taskrunner.ExecutorError{Message: "rate limited", Retryable: true, RetryAt: &retryAt},
			wantOutcome: "retryable",
		},
		{
			name:        "fatal",
			err:         &taskrunner.ExecutorError{Message: "bad request"},
			wantOutcome: "fatal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			w := newTestWorker(&fakeRunner{err: tt.err}, publisher)

			err := w.processTask(context.Background(), testRef, false)

			assert.True(t, mq.IsPermanent(err), "executed task must not be redelivered")
			require.Len(t, publisher.payloads, 1)
			payload := publisher.payloads[0]
			assert.Equal(t, tt.wantOutcome, payload.Outcome)
			assert.Equal(t, tt.err.Message, payload.Message)
			assert.Equal(t, tt.err.Retryable, payload.Retryable)
			assert.Equal(t, tt.err.RetryAt, payload.RetryAt)
			assert.Equal(t, "p1", payload.ActionTaskParamsID)
			assert.Equal(t, "ops", payload.SpaceID)
		})
	}
}

func TestProcessTask_Settle(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantNil       bool
		wantPermanent bool
		wantPublished bool
	}{
		{name: "params not found", err: fmt.Errorf("get: %w", repo.ErrNotFound), wantNil: true, wantPublished: true},
		{name: "decrypt failure", err: encryption.ErrDecrypt, wantPermanent: true, wantPublished: true},
		{name: "malformed params", err: fmt.Errorf("%w: bad json", taskrunner.ErrMalformedParams), wantPermanent: true, wantPublished: true},
		{name: "database down", err: errors.New("connection refused")},
		{name: "runner misuse", err: taskrunner.ErrNotInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			w := newTestWorker(&fakeRunner{err: tt.err}, publisher)

			err := w.processTask(context.Background(), testRef, false)

			if tt.wantNil {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, tt.wantPermanent, mq.IsPermanent(err))
			}

			if tt.wantPublished {
				require.Len(t, publisher.payloads, 1)
				assert.Equal(t, "fatal", publisher.payloads[0].Outcome)
			} else {
				assert.Empty(t, publisher.payloads)
			}
		})
	}
}

func TestHandleTaskRun_ParamsNotFound(t *testing.T) {
	notFound := fmt.Errorf("get: %w", repo.ErrNotFound)

	t.Run("first delivery reports fatal completion", func(t *testing.T) {
		publisher := &fakePublisher{}
		w := newTestWorker(&fakeRunner{err: notFound}, publisher)

		err := w.handleTaskRun(context.Background(), runDelivery(t, testRef))
		require.NoError(t, err)

		require.Len(t, publisher.payloads, 1)
		payload := publisher.payloads[0]
		assert.Equal(t, "fatal", payload.Outcome)
		assert.Equal(t, "action_task_params not found", payload.Message)
		assert.False(t, payload.Retryable)
		assert.Equal(t, "p1", payload.ActionTaskParamsID)
		assert.Equal(t, "ops", payload.SpaceID)
	})

	t.Run("redelivery is acked silently", func(t *testing.T) {
		publisher := &fakePublisher{}
		w := newTestWorker(&fakeRunner{err: notFound}, publisher)

		delivery := runDelivery(t, testRef)
		delivery.Raw.Redelivered = true

		require.NoError(t, w.handleTaskRun(context.Background(), delivery))
		assert.Empty(t, publisher.payloads)
	})
}

func TestHandleTaskRun_InvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{name: "not an object", payload: "p1"},
		{name: "missing params id", payload: map[string]any{"space_id": "ops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			w := newTestWorker(runner, &fakePublisher{})

			err := w.handleTaskRun(context.Background(), runDelivery(t, tt.payload))

			require.ErrorIs(t, err, ErrInvalidMessage)
			assert.True(t, mq.IsPermanent(err))
			assert.Empty(t, runner.refs)
		})
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("channel closed")}
	w := newTestWorker(&fakeRunner{}, publisher)

	require.NoError(t, w.processTask(context.Background(), testRef, false))
	assert.Len(t, publisher.payloads, 1)
}

func TestWithoutPublisher(t *testing.T) {
	w := New(Config{Runner: &fakeRunner{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	require.NoError(t, w.processTask(context.Background(), testRef, false))
	assert.Equal(t, defaultPrefetch, w.prefetch)
}

func TestWorkerLifecycle(t *testing.T) {
	w := newTestWorker(&fakeRunner{}, nil)

	// Stop без Start не блокируется
	assert.False(t, w.IsStopped())
	w.Stop()
	assert.True(t, w.IsStopped())
	w.Stop()

	// Второй Start отклоняется до обращения к соединению
	w2 := newTestWorker(&fakeRunner{}, nil)
	w2.started.Store(true)
	require.ErrorIs(t, w2.Start(context.Background()), ErrAlreadyStarted)
}
