package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/mq"
	"github.com/shaiso/actions/internal/repo"
	"github.com/shaiso/actions/internal/taskrunner"
	"github.com/shaiso/actions/internal/telemetry"
)

// handleTaskRun обрабатывает сообщение из очереди actions.tasks.run.
func (w *Worker) handleTaskRun(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	ref, err := mq.ParsePayload[mq.TaskRunPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse action.task.run payload", "error", err)
		return mq.Permanent(fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}

	w.logger.Debug("received action.task.run event",
		"space_id", ref.SpaceID,
		"action_task_params_id", ref.ActionTaskParamsID,
		"redelivered", delivery.Redelivered(),
	)

	return w.processTask(ctx, ref, delivery.Redelivered())
}

// processTask выполняет task и возвращает ошибку для settle сообщения:
// nil — ack, mq.Permanent — DLQ, прочее — requeue.
func (w *Worker) processTask(ctx context.Context, ref domain.TaskReference, redelivered bool) error {
	if err := ref.Validate(); err != nil {
		return mq.Permanent(fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}

	logger := telemetry.WithTask(w.logger, ref.SpaceID, ref.ActionTaskParamsID)

	runErr := w.runner.RunTask(ctx, ref)

	// Успех
	if runErr == nil {
		w.publishCompletion(ctx, completion(ref, taskrunner.OutcomeSuccess, ""))
		return nil
	}

	// Action выполнен с ошибкой — параметры уже удалены
	if execErr, ok := taskrunner.AsExecutorError(runErr); ok {
		outcome := taskrunner.OutcomeFatal
		if execErr.Retryable {
			outcome = taskrunner.OutcomeRetryable
		}
		payload := completion(ref, outcome, execErr.Message)
		payload.Retryable = execErr.Retryable
		payload.RetryAt = execErr.RetryAt

		w.publishCompletion(ctx, payload)
		return mq.Permanent(runErr)
	}

	switch {
	case errors.Is(runErr, repo.ErrNotFound):
		if redelivered {
			// Дубликат: task уже выполнен, completion опубликован первой доставкой
			logger.Warn("action_task_params not found on redelivery, skipping task", "error", runErr)
			return nil
		}
		// Первая доставка без параметров: запись удалена janitor'ом
		logger.Warn("action_task_params not found, reporting task as failed", "error", runErr)
		w.publishCompletion(ctx, completion(ref, taskrunner.OutcomeFatal, msgParamsNotFound))
		return nil

	case errors.Is(runErr, encryption.ErrDecrypt),
		errors.Is(runErr, taskrunner.ErrMalformedParams),
		errors.Is(runErr, domain.ErrInvalidTaskReference):
		w.publishCompletion(ctx, completion(ref, taskrunner.OutcomeFatal, runErr.Error()))
		return mq.Permanent(runErr)

	default:
		// Инфраструктурная ошибка — вернём сообщение в очередь
		return fmt.Errorf("run task %s: %w", ref.ActionTaskParamsID, runErr)
	}
}

const msgParamsNotFound = "action_task_params not found"

func completion(ref domain.TaskReference, outcome taskrunner.Outcome, message string) mq.TaskCompletedPayload {
	return mq.TaskCompletedPayload{
		SpaceID:            ref.SpaceID,
		ActionTaskParamsID: ref.ActionTaskParamsID,
		Outcome:            outcome.String(),
		Message:            message,
	}
}

// publishCompletion публикует событие action.task.completed.
func (w *Worker) publishCompletion(ctx context.Context, payload mq.TaskCompletedPayload) {
	if w.publisher == nil {
		w.logger.Warn("publisher not available, skipping action.task.completed publish",
			"action_task_params_id", payload.ActionTaskParamsID,
		)
		return
	}

	if err := w.publisher.PublishTaskCompleted(ctx, payload); err != nil {
		// Не возвращаем ошибку: task уже выполнен, повторять его нельзя
		w.logger.Warn("failed to publish action.task.completed",
			"action_task_params_id", payload.ActionTaskParamsID,
			"error", err,
		)
	}
}
