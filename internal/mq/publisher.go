package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeSessionPending MessageType = "session.pending"
	MessageTypeAlertEvent     MessageType = "alert.event"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// SessionPendingPayload — payload для сообщения о новой сессии.
type SessionPendingPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// AlertEventPayload — payload события от alert-узла.
type AlertEventPayload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishSessionPending публикует событие о новой сессии, ожидающей
// выполнения. Потребитель: Engine.
func (p *Publisher) PublishSessionPending(ctx context.Context, sessionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeSessionPending,
		Payload:   SessionPendingPayload{SessionID: sessionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeSessions, RoutingKeyPending, msg)
}

// Broadcast публикует событие alert-узла в обменник dirigent.alerts.
//
// Реализует контракт Broadcaster из provider: доставка fire-and-forget,
// вызывающий сам решает, фатальна ли ошибка публикации.
func (p *Publisher) Broadcast(ctx context.Context, event string, payload map[string]any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeAlertEvent,
		Payload:   AlertEventPayload{Event: event, Data: payload},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeAlerts, RoutingKeyAlert, msg)
}
