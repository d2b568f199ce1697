package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/actions/internal/telemetry"
)

// resubscribeDelay — пауза перед повторной подпиской, если соединение живо,
// а подписка не удалась.
const resubscribeDelay = 5 * time.Second

// ErrUnexpectedType — в очередь пришло сообщение чужого типа.
var ErrUnexpectedType = errors.New("unexpected message type")

// Handler обрабатывает одно сообщение. nil — ack, Permanent — DLQ,
// любая другая ошибка — возврат в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранный конверт и исходная AMQP доставка.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// Redelivered — брокер уже отдавал это сообщение.
func (d *Delivery) Redelivered() bool {
	return d.Raw.Redelivered
}

// DeathCount — сколько раз сообщение уже проходило через dead-letter.
func (d *Delivery) DeathCount() int64 {
	deaths, ok := d.Raw.Headers["x-death"].([]any)
	if !ok {
		return 0
	}
	var total int64
	for _, entry := range deaths {
		table, ok := entry.(amqp.Table)
		if !ok {
			continue
		}
		if n, ok := table["count"].(int64); ok {
			total += n
		}
	}
	return total
}

// Settlement — чем закончилась обработка доставки.
type Settlement string

const (
	SettleAck        Settlement = "ack"
	SettleRequeue    Settlement = "requeue"
	SettleDeadLetter Settlement = "dead_letter"
)

// Settle переводит результат Handler в действие над доставкой.
func Settle(err error) Settlement {
	switch {
	case err == nil:
		return SettleAck
	case IsPermanent(err):
		return SettleDeadLetter
	default:
		return SettleRequeue
	}
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Types — допустимые типы сообщений. Пусто — любые.
	Types []MessageType

	// Prefetch — неподтверждённых сообщений на канал и одновременно
	// работающих Handler'ов (default: 1).
	Prefetch int

	Logger *slog.Logger
}

// Consumer читает очередь и подтверждает сообщения по результату Handler.
// Переживает переподключения Connection.
type Consumer struct {
	conn *Connection
	cfg  ConsumerConfig

	logger   *slog.Logger
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With("queue", cfg.Queue),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start блокируется до отмены ctx или Stop. Вызывается один раз.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("consumer already started")
	}
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		reconnected := c.conn.Reconnected()

		ch, deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
			_ = ch.Close()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
			c.logger.Info("reconnected, resubscribing")
		case <-time.After(resubscribeDelay):
		}
	}
}

// Stop останавливает Consumer и ждёт, пока начатые сообщения будут обработаны.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

// subscribe открывает собственный канал consumer'а и подписывается на очередь.
func (c *Consumer) subscribe() (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.cfg.Queue), "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return ch, deliveries, nil
}

// drain обрабатывает доставки, пока канал открыт: до Prefetch сообщений
// одновременно. Возвращается, когда все начатые обработчики завершились.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	slots := make(chan struct{}, c.cfg.Prefetch)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case slots <- struct{}{}:
		}

		var raw amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return
		case raw, ok = <-deliveries:
		}
		if !ok {
			c.logger.Warn("deliveries channel closed")
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			// Начатый task доводим до конца даже при остановке
			c.settle(raw, c.handle(context.WithoutCancel(ctx), raw))
		}()
	}
}

// handle разбирает конверт и вызывает Handler.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) error {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		return Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if len(c.cfg.Types) > 0 && !slices.Contains(c.cfg.Types, msg.Type) {
		return Permanent(fmt.Errorf("%w: %q", ErrUnexpectedType, msg.Type))
	}

	c.logger.Debug("received message", "message_id", msg.ID, "type", msg.Type)
	return c.cfg.Handler(ctx, &Delivery{Message: msg, Raw: raw})
}

func (c *Consumer) settle(raw amqp.Delivery, err error) {
	settlement := Settle(err)
	telemetry.MessagesConsumed.WithLabelValues(string(c.cfg.Queue), string(settlement)).Inc()

	var ackErr error
	switch settlement {
	case SettleAck:
		ackErr = raw.Ack(false)
	case SettleRequeue:
		c.logger.Warn("message requeued", "message_id", raw.MessageId, "error", err)
		ackErr = raw.Nack(false, true)
	case SettleDeadLetter:
		c.logger.Error("message dead-lettered", "message_id", raw.MessageId, "error", err)
		ackErr = raw.Nack(false, false)
	}

	if ackErr != nil {
		// Канал уже закрыт: брокер вернёт сообщение в очередь сам
		c.logger.Warn("failed to settle message", "message_id", raw.MessageId, "settlement", settlement, "error", ackErr)
	}
}

// ParsePayload разбирает payload конверта в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var v T
	if len(msg.Payload) == 0 {
		return v, errors.New("empty payload")
	}
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s payload: %w", msg.Type, err)
	}
	return v, nil
}
