// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Подтверждением доставок владеет Consumer: обработчик возвращает
// nil (ack), ErrDropMessage (DLQ) или иную ошибку (повтор).
//
// Типы сообщений:
//   - session.pending — новая сессия ожидает выполнения
//   - alert.event     — событие alert-узла (fire-and-forget)
//
// Exchanges:
//   - dirigent.sessions — события сессий
//   - dirigent.alerts   — уведомления alert-узлов
//   - dirigent.dlq      — dead letter queue
package mq
