package mq

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcker struct {
	mu       sync.Mutex
	acked    []uint64
	requeued []uint64
	dropped  []uint64
}

func (a *recordingAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *recordingAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.dropped = append(a.dropped, tag)
	}
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *recordingAcker) counts() (acked, requeued, dropped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.requeued), len(a.dropped)
}

func taskRunDelivery(t *testing.T, acker amqp.Acknowledger, tag uint64) amqp.Delivery {
	t.Helper()
	msg, err := NewMessage(MessageTypeTaskRun, TaskRunPayload{ActionTaskParamsID: "p1"})
	require.NoError(t, err)
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: body}
}

func TestConsumer_DrainRunsUpToPrefetchConcurrently(t *testing.T) {
	const prefetch = 3
	const total = 7

	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32

	c := NewConsumer(nil, ConsumerConfig{
		Queue:    QueueTasksRun,
		Prefetch: prefetch,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Handler: func(ctx context.Context, msg *Delivery) error {
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return nil
		},
	})

	acker := &recordingAcker{}
	deliveries := make(chan amqp.Delivery, total)
	for i := range total {
		deliveries <- taskRunDelivery(t, acker, uint64(i+1))
	}
	close(deliveries)

	done := make(chan struct{})
	go func() {
		c.drain(context.Background(), deliveries)
		close(done)
	}()

	require.Eventually(t, func() bool { return inFlight.Load() == prefetch }, time.Second, 5*time.Millisecond)
	// Больше prefetch обработчиков не запускается
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(prefetch), inFlight.Load())

	select {
	case <-done:
		t.Fatal("drain returned before in-flight handlers finished")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return")
	}

	assert.Equal(t, int32(prefetch), maxInFlight.Load())
	acked, requeued, dropped := acker.counts()
	assert.Equal(t, total, acked)
	assert.Zero(t, requeued)
	assert.Zero(t, dropped)
}

func TestConsumer_DrainWaitsForHandlersOnCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerCtxErr atomic.Value

	c := NewConsumer(nil, ConsumerConfig{
		Queue:    QueueTasksRun,
		Prefetch: 2,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Handler: func(ctx context.Context, msg *Delivery) error {
			close(started)
			<-release
			handlerCtxErr.Store(ctx.Err() == nil)
			return Permanent(ErrUnexpectedType)
		},
	})

	acker := &recordingAcker{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- taskRunDelivery(t, acker, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.drain(ctx, deliveries)
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("drain returned while a handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return")
	}

	assert.Equal(t, true, handlerCtxErr.Load())
	_, _, dropped := acker.counts()
	assert.Equal(t, 1, dropped)
}

func TestConsumer_DrainSettlesMalformedEnvelope(t *testing.T) {
	var calls atomic.Int32
	c := NewConsumer(nil, ConsumerConfig{
		Queue:  QueueTasksRun,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Handler: func(ctx context.Context, msg *Delivery) error {
			calls.Add(1)
			return nil
		},
	})

	acker := &recordingAcker{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("{not json")}
	deliveries <- taskRunDelivery(t, acker, 2)
	close(deliveries)

	c.drain(context.Background(), deliveries)

	assert.Equal(t, int32(1), calls.Load())
	acked, requeued, dropped := acker.counts()
	assert.Equal(t, 1, acked)
	assert.Zero(t, requeued)
	assert.Equal(t, 1, dropped)
}
