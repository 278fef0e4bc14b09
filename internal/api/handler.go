package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/store"
)

// WorkflowStore — операции над определениями workflow.
type WorkflowStore interface {
	Create(ctx context.Context, wf *domain.WorkflowDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error)
	List(ctx context.Context) ([]domain.WorkflowDefinition, error)
	Update(ctx context.Context, wf *domain.WorkflowDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore — операции над сессиями выполнения.
type SessionStore interface {
	Create(ctx context.Context, s *domain.ExecutionSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExecutionSession, error)
	List(ctx context.Context, filter store.SessionFilter) ([]domain.ExecutionSession, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) error
}

// RecordStore — чтение записей аудита выполнения узлов.
type RecordStore interface {
	ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]domain.NodeExecutionRecord, error)
}

// SessionPublisher уведомляет engine о новой сессии.
type SessionPublisher interface {
	PublishSessionPending(ctx context.Context, sessionID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows WorkflowStore
	sessions  SessionStore
	records   RecordStore
	publisher SessionPublisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows WorkflowStore
	Sessions  SessionStore
	Records   RecordStore

	// Publisher опционален: без него сессии создаются в pending,
	// но engine узнаёт о них только через опрос ListPending.
	Publisher SessionPublisher

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		workflows: cfg.Workflows,
		sessions:  cfg.Sessions,
		records:   cfg.Records,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}
