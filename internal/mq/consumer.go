package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDropMessage — сигнал обработчика: сообщение невосстановимо
// и повтор бессмыслен. Consumer отклоняет его без возврата в
// очередь, и оно уходит в DLQ.
var ErrDropMessage = errors.New("drop message")

// Handler обрабатывает одно сообщение из очереди.
//
// Подтверждением доставки владеет Consumer, обработчик ничего не
// ack'ает сам. Исход определяется возвращаемым значением:
//   - nil — сообщение подтверждается (ack);
//   - ошибка, оборачивающая ErrDropMessage — nack без повтора, DLQ;
//   - любая другая ошибка — nack с возвратом в очередь.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения одной очереди RabbitMQ.
// Переживает переподключения Connection, переоформляя подписку.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых доставок брокер выдаёт
	// авансом (default: 1).
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start блокирует до остановки: подписывается на очередь,
// обрабатывает доставки, после разрыва соединения ждёт reconnect
// и подписывается заново.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("subscribe failed", "queue", c.queue, "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consuming", "queue", c.queue, "prefetch", c.prefetch)

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, resubscribing", "queue", c.queue)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop останавливает Consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// subscribe выставляет prefetch и начинает потребление очереди.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag придумает брокер
		false, // подтверждаем вручную по исходу обработчика
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// waitReconnect ждёт восстановления соединения либо отмены контекста.
func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected", "queue", c.queue)
		return nil
	}
}

// drain обрабатывает доставки до закрытия канала или отмены.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.settle(ctx, raw)
		}
	}
}

// settle разбирает конверт, вызывает обработчик и подтверждает
// доставку ровно один раз — здесь и только здесь.
func (c *Consumer) settle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message envelope",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Разбору не поддаётся — в DLQ
		raw.Nack(false, false)
		return
	}

	err := c.handler(ctx, &msg)
	switch {
	case err == nil:
		raw.Ack(false)

	case errors.Is(err, ErrDropMessage):
		c.logger.Error("message dropped",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, false)

	default:
		c.logger.Error("handler failed, requeueing",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, true)
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload приходит распарсенным в map; прогоняем через JSON,
	// чтобы получить типизированную структуру
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
