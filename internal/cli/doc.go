// Package cli реализует инструмент командной строки actionsctl.
//
// # Обзор
//
// actionsctl — утилита оператора. Работает напрямую с хранилищем
// и RabbitMQ (через enqueue и janitor), HTTP API не требуется.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода: Record для одного объекта, List для таблиц.
//   - text/tabwriter — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Notice) — в stderr.
// Это позволяет использовать pipe: actionsctl task enqueue ... --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - action: create, types
//   - task: enqueue
//   - janitor: run-once
//
// Каждая группа создаётся через фабричную функцию (NewActionCmd и т.д.),
// принимающую servicesFn и outputFn — замыкания для ленивого создания
// зависимостей и Output после парсинга PersistentFlags.
package cli
