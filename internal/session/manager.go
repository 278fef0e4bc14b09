package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/dispatch"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/graph"
	"github.com/shaiso/Dirigent/internal/store"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// defaultMaxDepth — максимальная глубина вложенности под-workflow.
const defaultMaxDepth = 8

// WorkflowStore — чтение определений workflow.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error)
}

// SessionStore — персистентность сессий.
type SessionStore interface {
	Create(ctx context.Context, s *domain.ExecutionSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExecutionSession, error)
	GetStatus(ctx context.Context, id uuid.UUID) (domain.SessionStatus, error)
	Update(ctx context.Context, s *domain.ExecutionSession) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
}

// Manager — менеджер сессий: createSession / run / cancel.
type Manager struct {
	workflows  WorkflowStore
	sessions   SessionStore
	dispatcher *dispatch.Dispatcher
	maxDepth   int
	logger     *slog.Logger

	// active — in-process cancel-функции выполняющихся сессий.
	active map[uuid.UUID]context.CancelFunc
	mu     sync.Mutex
}

// Config — конфигурация Manager.
type Config struct {
	Workflows WorkflowStore
	Sessions  SessionStore
	Records   dispatch.RecordStore
	Data      dispatch.DataStore

	// Collaborators — внешние исполнители для обработчиков узлов.
	// Subworkflows заполняется самим Manager.
	Collaborators dispatch.Collaborators

	// MaxDepth — максимальная глубина под-workflow (default: 8).
	MaxDepth int

	Logger *slog.Logger
}

// NewManager создаёт Manager.
func NewManager(cfg Config) *Manager {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		workflows: cfg.Workflows,
		sessions:  cfg.Sessions,
		maxDepth:  maxDepth,
		logger:    logger,
		active:    make(map[uuid.UUID]context.CancelFunc),
	}

	collab := cfg.Collaborators
	collab.Subworkflows = m
	m.dispatcher = dispatch.NewDispatcher(dispatch.NewRegistry(collab), cfg.Records, cfg.Data)

	return m
}

// CreateSession создаёт сессию в статусе pending.
func (m *Manager) CreateSession(ctx context.Context, workflowID uuid.UUID, input map[string]any) (*domain.ExecutionSession, error) {
	wf, err := m.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	if !wf.IsActive {
		return nil, ErrWorkflowInactive
	}

	session := domain.NewExecutionSession(workflowID, input)
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Run выполняет сессию до терминального статуса.
//
// Узлы выполняются строго последовательно в топологическом порядке,
// первая ошибка узла останавливает сессию (fail-fast). Отмена —
// кооперативная: статус проверяется между узлами, выполняющийся
// узел не прерывается.
func (m *Manager) Run(ctx context.Context, sessionID uuid.UUID) error {
	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session.IsFinished() {
		return fmt.Errorf("%w: %s", ErrAlreadyFinished, session.Status)
	}

	wf, err := m.workflows.GetByID(ctx, session.WorkflowID)
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}

	logger := telemetry.WithWorkflowID(
		telemetry.WithSessionID(m.logger, session.ID.String()), wf.ID.String())

	g := graph.Build(wf.Nodes, wf.Edges)
	order := g.Sort()
	if len(g.Deferred) > 0 {
		logger.Warn("definition has unsortable nodes, executing them after the sorted prefix",
			"deferred", g.Deferred)
	}

	runCtx, cancel := context.WithCancel(telemetry.WithLogger(ctx, logger))
	defer cancel()
	m.register(session.ID, cancel)
	defer m.unregister(session.ID)

	session.MarkRunning()
	if err := m.sessions.Update(runCtx, session); err != nil {
		logger.Error("persist session status failed", "error", err)
	}

	telemetry.ActiveSessions.Inc()
	defer telemetry.ActiveSessions.Dec()

	logger.Info("session started", "nodes", len(order), "depth", session.Depth)

	sc := dispatch.NewSessionContext(session, wf, g)

	var lastOutput, endOutput map[string]any
	endSeen := false

	for _, n := range order {
		if m.cancelRequested(runCtx, session.ID) {
			session.MarkCancelled()
			m.finish(ctx, logger, session)
			logger.Info("session cancelled")
			return nil
		}

		output, err := m.dispatcher.Dispatch(runCtx, sc, n.Spec)
		if err != nil {
			session.MarkFailed(err.Error())
			m.finish(ctx, logger, session)
			logger.Error("session failed", "node_id", n.ID, "error", err)
			return err
		}

		lastOutput = output
		if n.Spec.Type == domain.NodeTypeEnd {
			endOutput = output
			endSeen = true
		}
	}

	final := lastOutput
	if endSeen {
		final = endOutput
	}
	session.MarkCompleted(final)
	m.finish(ctx, logger, session)
	logger.Info("session completed", "duration", session.Duration())
	return nil
}

// Cancel запрашивает отмену сессии. Идемпотентен: отмена уже
// завершённой сессии — no-op.
func (m *Manager) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	status, err := m.sessions.GetStatus(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session status: %w", err)
	}
	if status.IsTerminal() {
		return nil
	}

	if err := m.sessions.MarkCancelled(ctx, sessionID); err != nil {
		// Гонка с завершением сессии — не ошибка отмены.
		if !errors.Is(err, store.ErrInvalidState) {
			return fmt.Errorf("mark cancelled: %w", err)
		}
	}

	m.mu.Lock()
	if cancel, ok := m.active[sessionID]; ok {
		cancel()
	}
	m.mu.Unlock()

	return nil
}

// RunSubworkflow запускает workflow как дочернюю сессию и ждёт её
// завершения. Счётчик глубины протягивается через контекст и
// проверяется до создания сессии: превышение максимума — отказ
// (fail closed).
func (m *Manager) RunSubworkflow(ctx context.Context, workflowID uuid.UUID, input map[string]any, parent *domain.ExecutionSession) (map[string]any, error) {
	depth := dispatch.DepthOf(ctx) + 1
	if depth > m.maxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds max %d",
			dispatch.ErrMaxDepthExceeded, depth, m.maxDepth)
	}

	child := domain.NewChildSession(workflowID, input, parent)
	if err := m.sessions.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("create child session: %w", err)
	}

	if err := m.Run(dispatch.WithDepth(ctx, depth), child.ID); err != nil {
		return nil, err
	}

	final, err := m.sessions.GetByID(ctx, child.ID)
	if err != nil {
		return nil, fmt.Errorf("load child session: %w", err)
	}

	// Выход родительского узла — ровно терминальный выход дочерней
	// сессии; её id виден в логах и в записях дочерних узлов.
	m.logger.Info("subworkflow completed",
		"child_session_id", child.ID,
		"parent_session_id", parent.ID,
		"workflow_id", workflowID)
	return final.Output, nil
}

// --- Helpers ---

// cancelRequested проверяет, запрошена ли отмена: сперва in-process
// контекст, затем статус в хранилище (отмена из другого процесса).
func (m *Manager) cancelRequested(ctx context.Context, sessionID uuid.UUID) bool {
	if ctx.Err() != nil {
		return true
	}

	status, err := m.sessions.GetStatus(ctx, sessionID)
	if err != nil {
		telemetry.FromContext(ctx).Warn("check session status failed", "error", err)
		return false
	}
	return status == domain.SessionStatusCancelled
}

// finish доводит терминальный статус до хранилища и метрик.
// Использует исходный ctx: runCtx к этому моменту может быть отменён.
func (m *Manager) finish(ctx context.Context, logger *slog.Logger, session *domain.ExecutionSession) {
	if err := m.sessions.Update(ctx, session); err != nil {
		logger.Error("persist terminal session status failed", "error", err)
	}
	telemetry.SessionsTotal.WithLabelValues(string(session.Status)).Inc()
}

// register добавляет cancel-функцию выполняющейся сессии.
func (m *Manager) register(id uuid.UUID, cancel context.CancelFunc) {
	m.mu.Lock()
	m.active[id] = cancel
	m.mu.Unlock()
}

// unregister убирает сессию из выполняющихся.
func (m *Manager) unregister(id uuid.UUID) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
