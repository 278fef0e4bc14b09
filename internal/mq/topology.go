package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeSessions Exchange = "dirigent.sessions"
	ExchangeAlerts   Exchange = "dirigent.alerts"
	ExchangeDLQ      Exchange = "dirigent.dlq"
)

// Queues — имена очередей.
const (
	QueueSessionsPending Queue = "sessions.pending"
	QueueAlertEvents     Queue = "alerts.events"
	QueueDLQSessions     Queue = "dlq.sessions"
)

// Routing keys.
const (
	RoutingKeyPending     RoutingKey = "pending"
	RoutingKeyAlert       RoutingKey = "event"
	RoutingKeyDLQSessions RoutingKey = "sessions"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeSessions, "direct"},
		{ExchangeAlerts, "fanout"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQSessions),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// sessions.pending — с DLQ (битое сообщение не должно
		// крутиться в очереди вечно)
		{QueueSessionsPending, dlqArgs},

		// alerts.events — без DLQ (fire-and-forget события)
		{QueueAlertEvents, nil},

		// dlq.sessions — сама DLQ очередь
		{QueueDLQSessions, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueSessionsPending, RoutingKeyPending, ExchangeSessions},
		{QueueAlertEvents, RoutingKeyAlert, ExchangeAlerts},
		{QueueDLQSessions, RoutingKeyDLQSessions, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Dirigent RabbitMQ Topology:

    dirigent.sessions (direct)
    └── sessions.pending [routing: pending]
            Consumer: Engine
            DLQ: dlq.sessions

    dirigent.alerts (fanout)
    └── alerts.events [routing: event]
            Consumer: notification bridges

    dirigent.dlq (direct)
    └── dlq.sessions [routing: sessions]
            Manual processing
  `
}
