package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcknowledger фиксирует, как consumer подтвердил доставку.
type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, _ bool) error {
	f.nacks++
	return nil
}

func (f *fakeAcknowledger) settles() int {
	return f.acks + f.nacks
}

func delivery(t *testing.T, acker *fakeAcknowledger, msg *Message) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return amqp.Delivery{Acknowledger: acker, Body: body}
}

func testConsumer(handler Handler) *Consumer {
	return &Consumer{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:    "test",
		handler:  handler,
		prefetch: 1,
	}
}

func TestConsumer_SettleAcksOnSuccess(t *testing.T) {
	acker := &fakeAcknowledger{}
	c := testConsumer(func(_ context.Context, _ *Message) error {
		return nil
	})

	c.settle(context.Background(), delivery(t, acker, &Message{ID: "m1", Type: MessageTypeSessionPending}))

	if acker.acks != 1 {
		t.Errorf("expected 1 ack, got %d", acker.acks)
	}
	if acker.settles() != 1 {
		t.Errorf("delivery must be settled exactly once, got %d", acker.settles())
	}
}

func TestConsumer_SettleDropsToDLQ(t *testing.T) {
	acker := &fakeAcknowledger{}
	c := testConsumer(func(_ context.Context, _ *Message) error {
		return fmt.Errorf("%w: bad payload", ErrDropMessage)
	})

	c.settle(context.Background(), delivery(t, acker, &Message{ID: "m1"}))

	if acker.nacks != 1 || acker.requeue {
		t.Errorf("expected nack without requeue, got nacks=%d requeue=%v", acker.nacks, acker.requeue)
	}
	if acker.settles() != 1 {
		t.Errorf("delivery must be settled exactly once, got %d", acker.settles())
	}
}

func TestConsumer_SettleRequeuesOnHandlerError(t *testing.T) {
	acker := &fakeAcknowledger{}
	c := testConsumer(func(_ context.Context, _ *Message) error {
		return errors.New("transient")
	})

	c.settle(context.Background(), delivery(t, acker, &Message{ID: "m1"}))

	if acker.nacks != 1 || !acker.requeue {
		t.Errorf("expected nack with requeue, got nacks=%d requeue=%v", acker.nacks, acker.requeue)
	}
}

func TestConsumer_SettleMalformedEnvelope(t *testing.T) {
	acker := &fakeAcknowledger{}
	called := false
	c := testConsumer(func(_ context.Context, _ *Message) error {
		called = true
		return nil
	})

	c.settle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{not json")})

	if called {
		t.Error("handler must not see a malformed envelope")
	}
	if acker.nacks != 1 || acker.requeue {
		t.Errorf("malformed envelope goes to DLQ, got nacks=%d requeue=%v", acker.nacks, acker.requeue)
	}
}
