package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionSession — экземпляр выполнения workflow.
//
// Сессия создаётся когда:
//   - Пользователь запускает workflow вручную (через API/CLI)
//   - Узел типа "workflow" запускает под-workflow (рекурсия)
//
// Узлы внутри одной сессии выполняются строго последовательно
// в топологическом порядке. Разные сессии независимы и могут
// выполняться параллельно друг другу.
type ExecutionSession struct {
	// ID — уникальный идентификатор сессии.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status SessionStatus `json:"status"`

	// Input — входные данные, переданные при запуске.
	// Для под-workflow — input родительского узла.
	Input map[string]any `json:"input,omitempty"`

	// Output — терминальный payload сессии.
	// Фиксируется узлом типа "end"; если end-узла нет —
	// output последнего выполненного узла.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки, если сессия завершилась как failed.
	Error string `json:"error,omitempty"`

	// Depth — глубина рекурсии под-workflow (0 для корневой сессии).
	// Выполнение обрывается, если глубина превышает настроенный максимум.
	Depth int `json:"depth,omitempty"`

	// ParentID — сессия-родитель для под-workflow. Nil для корневых.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// CreatedAt — время создания сессии.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время начала выполнения (когда статус стал running).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время достижения терминального статуса.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewExecutionSession создаёт корневую сессию в статусе pending.
func NewExecutionSession(workflowID uuid.UUID, input map[string]any) *ExecutionSession {
	return &ExecutionSession{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     SessionStatusPending,
		Input:      input,
		CreatedAt:  time.Now(),
	}
}

// NewChildSession создаёт сессию под-workflow, наследующую
// глубину рекурсии от родителя.
func NewChildSession(workflowID uuid.UUID, input map[string]any, parent *ExecutionSession) *ExecutionSession {
	s := NewExecutionSession(workflowID, input)
	s.Depth = parent.Depth + 1
	s.ParentID = &parent.ID
	return s
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если сессия ещё не завершена.
func (s *ExecutionSession) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// IsFinished возвращает true, если сессия в терминальном статусе.
func (s *ExecutionSession) IsFinished() bool {
	return s.Status.IsTerminal()
}

// MarkRunning переводит сессию в статус running.
func (s *ExecutionSession) MarkRunning() {
	now := time.Now()
	s.Status = SessionStatusRunning
	s.StartedAt = &now
}

// MarkCompleted переводит сессию в статус completed с терминальным payload.
func (s *ExecutionSession) MarkCompleted(output map[string]any) {
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.CompletedAt = &now
	s.Output = output
}

// MarkFailed переводит сессию в статус failed с текстом ошибки.
func (s *ExecutionSession) MarkFailed(err string) {
	now := time.Now()
	s.Status = SessionStatusFailed
	s.CompletedAt = &now
	s.Error = err
}

// MarkCancelled переводит сессию в статус cancelled.
func (s *ExecutionSession) MarkCancelled() {
	now := time.Now()
	s.Status = SessionStatusCancelled
	s.CompletedAt = &now
}
