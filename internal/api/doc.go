// Package api содержит служебный HTTP сервер процесса.
//
// Структура:
//   - handler.go    — Handler с DI (health checks, реестр типов, logger)
//   - routes.go     — регистрация маршрутов
//   - middleware.go — middleware (лог и метрики запросов, recovery)
//   - response.go   — JSON-ответы
//
// Маршруты:
//   - GET /healthz              — процесс жив
//   - GET /readyz               — зависимости (БД, RabbitMQ) доступны
//   - GET /metrics              — метрики Prometheus
//   - GET /api/v1/action-types  — зарегистрированные типы actions
package api
