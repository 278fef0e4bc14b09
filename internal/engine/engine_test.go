package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/store"
)

// fakeRunner помечает сессию завершённой, чтобы она ушла из pending.
type fakeRunner struct {
	mem *store.Memory

	mu  sync.Mutex
	ran []uuid.UUID
}

func (f *fakeRunner) Run(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	f.ran = append(f.ran, sessionID)
	f.mu.Unlock()

	s, err := f.mem.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	s.MarkCompleted(nil)
	return f.mem.Sessions.Update(ctx, s)
}

func (f *fakeRunner) ranIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.ran...)
}

func seedPending(t *testing.T, mem *store.Memory, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		s := domain.NewExecutionSession(uuid.New(), nil)
		if err := mem.Sessions.Create(context.Background(), s); err != nil {
			t.Fatalf("seed session: %v", err)
		}
		ids[i] = s.ID
	}
	return ids
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEngine_PollExecutesPendingSessions(t *testing.T) {
	mem := store.NewMemory()
	runner := &fakeRunner{mem: mem}
	ids := seedPending(t, mem, 3)

	e := New(Config{
		Sessions:     mem.Sessions,
		Runner:       runner,
		PollInterval: 10 * time.Millisecond,
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return len(runner.ranIDs()) == len(ids)
	})

	seen := make(map[uuid.UUID]bool)
	for _, id := range runner.ranIDs() {
		if seen[id] {
			t.Errorf("session %s executed twice", id)
		}
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("session %s never executed", id)
		}
	}
}

func TestEngine_PicksUpLateSessions(t *testing.T) {
	mem := store.NewMemory()
	runner := &fakeRunner{mem: mem}

	e := New(Config{
		Sessions:     mem.Sessions,
		Runner:       runner,
		PollInterval: 10 * time.Millisecond,
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	// Сессия появляется уже после старта engine
	ids := seedPending(t, mem, 1)

	waitFor(t, 2*time.Second, func() bool {
		ran := runner.ranIDs()
		return len(ran) == 1 && ran[0] == ids[0]
	})
}

func TestEngine_SessionPendingMessage(t *testing.T) {
	mem := store.NewMemory()
	runner := &fakeRunner{mem: mem}
	ids := seedPending(t, mem, 1)

	e := New(Config{
		Sessions:     mem.Sessions,
		Runner:       runner,
		PollInterval: time.Hour, // только событие, без polling
	})
	err := e.handleSessionPending(context.Background(), &mq.Message{
		Type:    mq.MessageTypeSessionPending,
		Payload: map[string]any{"session_id": ids[0].String()},
	})
	if err != nil {
		t.Fatalf("valid payload must be accepted: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		ran := runner.ranIDs()
		return len(ran) == 1 && ran[0] == ids[0]
	})
	e.wg.Wait()
}

func TestEngine_SessionPendingMalformedPayloadIsDropped(t *testing.T) {
	mem := store.NewMemory()
	runner := &fakeRunner{mem: mem}

	e := New(Config{
		Sessions:     mem.Sessions,
		Runner:       runner,
		PollInterval: time.Hour,
	})

	err := e.handleSessionPending(context.Background(), &mq.Message{
		Type:    mq.MessageTypeSessionPending,
		Payload: map[string]any{"session_id": "not-a-uuid"},
	})
	if !errors.Is(err, mq.ErrDropMessage) {
		t.Fatalf("unreadable payload must request a drop, got %v", err)
	}
	if len(runner.ranIDs()) != 0 {
		t.Error("nothing should be dispatched for a dropped message")
	}
}

func TestEngine_StopWaitsForActiveSessions(t *testing.T) {
	mem := store.NewMemory()
	runner := &fakeRunner{mem: mem}
	seedPending(t, mem, 2)

	e := New(Config{
		Sessions:     mem.Sessions,
		Runner:       runner,
		PollInterval: 10 * time.Millisecond,
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(runner.ranIDs()) == 2
	})

	e.Stop()

	if got := e.ActiveCount(); got != 0 {
		t.Errorf("expected no active sessions after stop, got %d", got)
	}
}
