package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeTasks Exchange = "actions.tasks"
	ExchangeDLQ   Exchange = "actions.dlq"
)

const (
	QueueTasksRun       Queue = "actions.tasks.run"
	QueueTasksCompleted Queue = "actions.tasks.completed"
	QueueDLQTasks       Queue = "dlq.actions.tasks"
)

const (
	RoutingKeyRun       RoutingKey = "run"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQTasks  RoutingKey = "tasks"
)

// completedTTL — сколько событие о завершении ждёт планировщик.
const completedTTL = 24 * time.Hour

// QueueSpec — очередь и её привязка к exchange.
type QueueSpec struct {
	Name     Queue
	Exchange Exchange
	Key      RoutingKey
	Args     amqp.Table
	Consumer string
}

// Topology — всё, что объявляет SetupTopology.
var Topology = []QueueSpec{
	{
		Name:     QueueTasksRun,
		Exchange: ExchangeTasks,
		Key:      RoutingKeyRun,
		Args: amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQTasks),
		},
		Consumer: "actions-worker",
	},
	{
		Name:     QueueTasksCompleted,
		Exchange: ExchangeTasks,
		Key:      RoutingKeyCompleted,
		Args:     amqp.Table{"x-message-ttl": completedTTL.Milliseconds()},
		Consumer: "task scheduler",
	},
	{
		Name:     QueueDLQTasks,
		Exchange: ExchangeDLQ,
		Key:      RoutingKeyDLQTasks,
		Consumer: "manual",
	},
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeTasks, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, q := range Topology {
			if _, err := ch.QueueDeclare(string(q.Name), true, false, false, false, q.Args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.Name, err)
			}
			if err := ch.QueueBind(string(q.Name), string(q.Key), string(q.Exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", q.Name, q.Exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo описывает топологию для лога старта.
func TopologyInfo() string {
	var b strings.Builder
	b.WriteString("actions RabbitMQ topology:")
	for _, q := range Topology {
		fmt.Fprintf(&b, "\n  %s -[%s]-> %s (consumer: %s)", q.Exchange, q.Key, q.Name, q.Consumer)
		if dlx, ok := q.Args["x-dead-letter-exchange"]; ok {
			fmt.Fprintf(&b, ", dead letters -> %s", dlx)
		}
	}
	return b.String()
}
