package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения label outcome.
const (
	OutcomeSuccess    = "success"
	OutcomeRetryable  = "retryable"
	OutcomeFatal      = "fatal"
	OutcomeFetchError = "fetch_error"
)

var (
	// TaskRuns — количество выполнений task по исходу.
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_task_runs_total",
		Help: "Action task executions by outcome",
	}, []string{"outcome"})

	// CleanupFailures — неудачные удаления action_task_params после выполнения.
	CleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_task_cleanup_failures_total",
		Help: "Failed deletions of action_task_params after execution",
	})

	// ExecutorDuration — длительность выполнения action по типу.
	ExecutorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actions_executor_duration_seconds",
		Help:    "Duration of action executions by action type",
		Buckets: prometheus.DefBuckets,
	}, []string{"action_type"})

	// JanitorDeleted — записи, удалённые janitor'ом.
	JanitorDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_janitor_deleted_total",
		Help: "Stale action_task_params removed by the janitor",
	})
)

var (
	// MessagesPublished — опубликованные сообщения по типу и результату (ok, error).
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_mq_published_total",
		Help: "Messages published to RabbitMQ by type and result",
	}, []string{"type", "result"})

	// MessagesConsumed — обработанные доставки по очереди и settlement.
	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_mq_consumed_total",
		Help: "Consumed deliveries by queue and settlement",
	}, []string{"queue", "settlement"})
)

// HTTPRequestDuration — длительность запросов к служебному HTTP по маршруту и статусу.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "actions_http_request_duration_seconds",
	Help:    "Duration of worker HTTP requests by route and status",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "status"})
