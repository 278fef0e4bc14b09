package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/dispatch"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/store"
)

func newTestManager(mem *store.Memory, maxDepth int) *Manager {
	return NewManager(Config{
		Workflows: mem.Workflows,
		Sessions:  mem.Sessions,
		Records:   mem.Records,
		Data:      mem.Data,
		MaxDepth:  maxDepth,
	})
}

func seedWorkflow(t *testing.T, mem *store.Memory, nodes []domain.NodeSpec, edges []domain.Edge) *domain.WorkflowDefinition {
	t.Helper()
	wf := &domain.WorkflowDefinition{
		ID:        uuid.New(),
		Name:      "test-workflow",
		Nodes:     nodes,
		Edges:     edges,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := mem.Workflows.Create(context.Background(), wf); err != nil {
		t.Fatalf("seed workflow: %v", err)
	}
	return wf
}

func node(id string, typ domain.NodeType, config map[string]any) domain.NodeSpec {
	return domain.NodeSpec{ID: id, Name: id, Type: typ, Config: config}
}

func edge(source, target string) domain.Edge {
	return domain.Edge{ID: source + "-" + target, Source: source, Target: target}
}

// --- CreateSession ---

func TestManager_CreateSession(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem, []domain.NodeSpec{node("s", domain.NodeTypeStart, nil)}, nil)

	session, err := m.CreateSession(context.Background(), wf.ID, map[string]any{"k": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != domain.SessionStatusPending {
		t.Errorf("expected pending, got %s", session.Status)
	}

	stored, err := mem.Sessions.GetByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("session should be persisted: %v", err)
	}
	if stored.WorkflowID != wf.ID {
		t.Errorf("unexpected workflow id: %s", stored.WorkflowID)
	}
}

func TestManager_CreateSession_InactiveWorkflow(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem, []domain.NodeSpec{node("s", domain.NodeTypeStart, nil)}, nil)
	wf.IsActive = false
	if err := mem.Workflows.Update(context.Background(), wf); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := m.CreateSession(context.Background(), wf.ID, nil)
	if !errors.Is(err, ErrWorkflowInactive) {
		t.Errorf("expected ErrWorkflowInactive, got %v", err)
	}
}

func TestManager_CreateSession_UnknownWorkflow(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)

	_, err := m.CreateSession(context.Background(), uuid.New(), nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Run ---

func TestManager_Run_ChainCompletes(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem,
		[]domain.NodeSpec{
			node("start", domain.NodeTypeStart, nil),
			node("double", domain.NodeTypeTransform, map[string]any{
				"mapping": map[string]any{"doubled": "n * 2"},
				"input":   map[string]any{"n": "$node.start.n"},
			}),
			node("end", domain.NodeTypeEnd, nil),
		},
		[]domain.Edge{edge("start", "double"), edge("double", "end")},
	)

	session, err := m.CreateSession(context.Background(), wf.ID, map[string]any{"n": 21.0})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Run(context.Background(), session.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	final, err := mem.Sessions.GetByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if final.Status != domain.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.Error)
	}
	if final.Output["doubled"] != 42.0 {
		t.Errorf("end node output should become session output, got %v", final.Output)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Error("timestamps should be set")
	}

	// Записи выполнения для всех узлов
	records, err := mem.Records.ListBySessionID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Status != domain.NodeStatusCompleted {
			t.Errorf("record %s should be completed, got %s", rec.NodeID, rec.Status)
		}
	}
}

func TestManager_Run_FailFast(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem,
		[]domain.NodeSpec{
			node("bad", domain.NodeTypeTransform, nil), // невалидная конфигурация
			node("after", domain.NodeTypeTransform, map[string]any{"expression": "1"}),
		},
		[]domain.Edge{edge("bad", "after")},
	)

	session, err := m.CreateSession(context.Background(), wf.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = m.Run(context.Background(), session.ID)
	if !errors.Is(err, dispatch.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	final, _ := mem.Sessions.GetByID(context.Background(), session.ID)
	if final.Status != domain.SessionStatusFailed {
		t.Errorf("expected failed, got %s", final.Status)
	}
	if final.Error == "" {
		t.Error("session should carry the error text")
	}

	// Fail-fast: последующий узел не выполнялся
	if _, err := mem.Records.Get(context.Background(), session.ID, "after"); !errors.Is(err, store.ErrNotFound) {
		t.Error("downstream node should not have been executed")
	}
}

func TestManager_Run_NoEndNode_LastOutputWins(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem,
		[]domain.NodeSpec{
			node("a", domain.NodeTypeTransform, map[string]any{"expression": "1"}),
			node("b", domain.NodeTypeTransform, map[string]any{"expression": "2"}),
		},
		[]domain.Edge{edge("a", "b")},
	)

	session, _ := m.CreateSession(context.Background(), wf.ID, nil)
	if err := m.Run(context.Background(), session.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	final, _ := mem.Sessions.GetByID(context.Background(), session.ID)
	if final.Output["result"] != 2.0 {
		t.Errorf("without an end node the last output wins, got %v", final.Output)
	}
}

func TestManager_Run_AlreadyFinished(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem, []domain.NodeSpec{node("s", domain.NodeTypeStart, nil)}, nil)

	session, _ := m.CreateSession(context.Background(), wf.ID, nil)
	if err := m.Cancel(context.Background(), session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := m.Run(context.Background(), session.ID)
	if !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
}

// --- Cancel ---

func TestManager_Cancel_PendingSession(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem, []domain.NodeSpec{node("s", domain.NodeTypeStart, nil)}, nil)

	session, _ := m.CreateSession(context.Background(), wf.ID, nil)
	if err := m.Cancel(context.Background(), session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	status, _ := mem.Sessions.GetStatus(context.Background(), session.ID)
	if status != domain.SessionStatusCancelled {
		t.Errorf("expected cancelled, got %s", status)
	}
}

func TestManager_Cancel_Idempotent(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)
	wf := seedWorkflow(t, mem, []domain.NodeSpec{node("s", domain.NodeTypeStart, nil)}, nil)

	session, _ := m.CreateSession(context.Background(), wf.ID, nil)
	if err := m.Cancel(context.Background(), session.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := m.Cancel(context.Background(), session.ID); err != nil {
		t.Errorf("second cancel should be a no-op, got %v", err)
	}
}

func TestManager_Cancel_UnknownSession(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)

	err := m.Cancel(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Sub-workflows ---

func TestManager_Subworkflow_RunsChild(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 0)

	child := seedWorkflow(t, mem,
		[]domain.NodeSpec{
			node("start", domain.NodeTypeStart, nil),
			node("calc", domain.NodeTypeTransform, map[string]any{
				"mapping": map[string]any{"sum": "a + b"},
			}),
			node("end", domain.NodeTypeEnd, nil),
		},
		[]domain.Edge{edge("start", "calc"), edge("calc", "end")},
	)
	parent := seedWorkflow(t, mem,
		[]domain.NodeSpec{
			node("sub", domain.NodeTypeWorkflow, map[string]any{
				"workflow_id": child.ID.String(),
				"input":       map[string]any{"a": 2.0, "b": 3.0},
			}),
			node("end", domain.NodeTypeEnd, nil),
		},
		[]domain.Edge{edge("sub", "end")},
	)

	session, _ := m.CreateSession(context.Background(), parent.ID, nil)
	if err := m.Run(context.Background(), session.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	final, _ := mem.Sessions.GetByID(context.Background(), session.ID)
	if final.Status != domain.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.Error)
	}
	if final.Output["sum"] != 5.0 {
		t.Errorf("child output should flow through, got %v", final.Output)
	}

	// Дочерняя сессия персистентна, с глубиной и родителем
	childSessions, err := mem.Sessions.List(context.Background(),
		store.SessionFilter{WorkflowID: &child.ID})
	if err != nil {
		t.Fatalf("list child sessions: %v", err)
	}
	if len(childSessions) != 1 {
		t.Fatalf("expected one persisted child session, got %d", len(childSessions))
	}
	childSession := childSessions[0]
	if childSession.Depth != 1 {
		t.Errorf("expected depth 1, got %d", childSession.Depth)
	}
	if childSession.ParentID == nil || *childSession.ParentID != session.ID {
		t.Error("child should reference the parent session")
	}

	// Выход узла workflow — ровно терминальный выход дочерней сессии
	if len(final.Output) != len(childSession.Output) {
		t.Errorf("parent output %v must equal the child terminal output %v",
			final.Output, childSession.Output)
	}
	for key, val := range childSession.Output {
		if final.Output[key] != val {
			t.Errorf("parent output %v must equal the child terminal output %v",
				final.Output, childSession.Output)
			break
		}
	}
}

func TestManager_Subworkflow_DepthGuard(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(mem, 2)

	// Workflow, запускающий сам себя: рекурсия должна оборваться
	// на максимальной глубине, а не крутиться бесконечно.
	wf := seedWorkflow(t, mem, nil, nil)
	wf.Nodes = []domain.NodeSpec{
		node("self", domain.NodeTypeWorkflow, map[string]any{
			"workflow_id": wf.ID.String(),
		}),
	}
	if err := mem.Workflows.Update(context.Background(), wf); err != nil {
		t.Fatalf("update workflow: %v", err)
	}

	session, _ := m.CreateSession(context.Background(), wf.ID, nil)
	err := m.Run(context.Background(), session.ID)
	if !errors.Is(err, dispatch.ErrMaxDepthExceeded) {
		t.Fatalf("expected ErrMaxDepthExceeded, got %v", err)
	}

	final, _ := mem.Sessions.GetByID(context.Background(), session.ID)
	if final.Status != domain.SessionStatusFailed {
		t.Errorf("root session should fail closed, got %s", final.Status)
	}
}
