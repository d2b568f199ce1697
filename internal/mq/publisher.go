package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/telemetry"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskRun       MessageType = "action.task.run"
	MessageTypeTaskCompleted MessageType = "action.task.completed"
)

// HeaderSpaceID — AMQP header со space task'а. Позволяет фильтровать DLQ
// без разбора тела.
const HeaderSpaceID = "x-space-id"

// Message — конверт сообщения. Payload хранится как есть и разбирается
// получателем через ParsePayload.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage собирает конверт с новым ID.
func NewMessage(typ MessageType, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}, nil
}

// TaskRunPayload — payload action.task.run: ссылка на параметры в хранилище.
// Сами параметры в очередь не попадают.
type TaskRunPayload = domain.TaskReference

// TaskCompletedPayload — payload action.task.completed для внешнего планировщика.
type TaskCompletedPayload struct {
	SpaceID            string     `json:"space_id"`
	ActionTaskParamsID string     `json:"action_task_params_id"`
	Outcome            string     `json:"outcome"` // success, retryable или fatal
	Message            string     `json:"message,omitempty"`
	Retryable          bool       `json:"retryable"`
	RetryAt            *time.Time `json:"retry_at,omitempty"`
}

// Publisher публикует события action tasks.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// PublishTaskRun ставит task в очередь actions.tasks.run.
func (p *Publisher) PublishTaskRun(ctx context.Context, ref domain.TaskReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	msg, err := NewMessage(MessageTypeTaskRun, TaskRunPayload(ref))
	if err != nil {
		return err
	}
	return p.publish(ctx, RoutingKeyRun, ref.SpaceID, msg)
}

// PublishTaskCompleted публикует итог выполнения task.
func (p *Publisher) PublishTaskCompleted(ctx context.Context, payload TaskCompletedPayload) error {
	msg, err := NewMessage(MessageTypeTaskCompleted, payload)
	if err != nil {
		return err
	}
	return p.publish(ctx, RoutingKeyCompleted, payload.SpaceID, msg)
}

// publish отправляет конверт в exchange actions.tasks и ждёт подтверждения брокера.
func (p *Publisher) publish(ctx context.Context, key RoutingKey, spaceID string, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, string(ExchangeTasks), string(key), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         string(msg.Type),
			Timestamp:    msg.Timestamp,
			Headers:      amqp.Table{HeaderSpaceID: spaceID},
			Body:         body,
		})
		if err != nil {
			return err
		}

		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !acked {
			return ErrPublishNacked
		}
		return nil
	})
	if err != nil {
		telemetry.MessagesPublished.WithLabelValues(string(msg.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}

	telemetry.MessagesPublished.WithLabelValues(string(msg.Type), "ok").Inc()
	p.logger.Debug("published message",
		"routing_key", key,
		"message_id", msg.ID,
		"type", msg.Type,
		"space_id", spaceID,
	)
	return nil
}
