package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shaiso/actions/internal/actions"
	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/savedobjects"
	"github.com/shaiso/actions/internal/telemetry"
)

// cleanupTimeout — сколько ждём удаления action_task_params.
const cleanupTimeout = 10 * time.Second

// Runner выполняет один task. Создаётся через Factory.Create.
type Runner struct {
	ref      domain.TaskReference
	rc       *RunnerContext
	executor ActionExecutor
	consumed atomic.Bool
}

// Reference возвращает ссылку на task, к которой привязан Runner.
func (r *Runner) Reference() domain.TaskReference {
	return r.ref
}

// Run выполняет task.
//
// Возвращает:
//   - nil — action выполнен
//   - *ExecutorError — action завершился ошибкой (Retryable — можно ли повторить)
//   - ошибку чтения action_task_params без изменений
//   - ErrMalformedParams — параметры расшифрованы, но не разбираются
//   - ErrRunnerConsumed — Run уже вызывался
func (r *Runner) Run(ctx context.Context) error {
	if !r.consumed.CompareAndSwap(false, true) {
		return ErrRunnerConsumed
	}

	logger := telemetry.WithTask(r.rc.Logger, r.ref.SpaceID, r.ref.ActionTaskParamsID)

	// 1. Decrypting
	namespace := r.rc.SpaceIDToNamespace(r.ref.SpaceID)
	obj, err := r.rc.EncryptedObjects.GetDecryptedAsInternalUser(ctx,
		domain.ActionTaskParamsType,
		r.ref.ActionTaskParamsID,
		savedobjects.GetOptions{Namespace: namespace},
	)
	if err != nil {
		telemetry.TaskRuns.WithLabelValues(telemetry.OutcomeFetchError).Inc()
		return err
	}

	// 2. Authorizing
	var params domain.ActionTaskParams
	var decodeErr error
	if obj == nil {
		decodeErr = errors.New("decrypted object is empty")
	} else {
		decodeErr = obj.DecodeAttributes(&params)
	}
	request := BuildSyntheticRequest(params.APIKey, r.rc.GetBasePath(r.ref.SpaceID))

	// 5. CleaningUp — после любого исхода шагов 3–4
	defer r.cleanup(ctx, logger, request)

	if decodeErr != nil {
		telemetry.TaskRuns.WithLabelValues(telemetry.OutcomeFatal).Inc()
		return fmt.Errorf("%w: %w", ErrMalformedParams, decodeErr)
	}
	logger = telemetry.WithActionID(logger, params.ActionID)

	// 3. Executing
	result, execErr := r.executor.Execute(ctx, actions.ExecuteOptions{
		ActionID: params.ActionID,
		Params:   params.Params,
		Request:  request,
	})
	if execErr != nil {
		// Executor должен сообщать об ошибках через результат
		result = domain.Failed(params.ActionID, execErr.Error(), nil)
	}

	// 4. Classifying
	outcome := Classify(result)
	telemetry.TaskRuns.WithLabelValues(outcome.String()).Inc()

	if outcome == OutcomeSuccess {
		logger.Info("action task succeeded")
		return nil
	}

	taskErr := newExecutorError(result, outcome)
	logger.Warn("action task failed",
		"error", taskErr.Message,
		"retryable", taskErr.Retryable,
	)
	return taskErr
}

// cleanup удаляет action_task_params. Ошибки только логируются.
func (r *Runner) cleanup(ctx context.Context, logger *slog.Logger, request *SyntheticRequest) {
	// Планировщик мог отменить ctx — параметры всё равно нужно удалить
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	client := r.rc.GetScopedClient(request)
	if err := client.Delete(ctx, domain.ActionTaskParamsType, r.ref.ActionTaskParamsID); err != nil {
		telemetry.CleanupFailures.Inc()
		logger.Error("failed to cleanup action_task_params object",
			"id", r.ref.ActionTaskParamsID,
			"error", err,
		)
	}
}
