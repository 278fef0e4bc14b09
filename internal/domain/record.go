package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeExecutionRecord — запись аудита о выполнении одного узла.
//
// Запись создаётся в статусе running ДО вызова обработчика
// и переводится в терминальный статус после — в том числе при ошибке.
// Благодаря этому история выполнения всегда доступна для инспекции,
// независимо от исхода узла и рестартов процесса.
//
// Ключ записи — пара (SessionID, NodeID): повторная запись
// перезаписывает, а не дублирует.
type NodeExecutionRecord struct {
	// SessionID — сессия, в рамках которой выполнялся узел.
	SessionID uuid.UUID `json:"session_id"`

	// NodeID — ID узла из WorkflowDefinition.
	NodeID string `json:"node_id"`

	// NodeName — имя узла (копия NodeSpec.Name для удобства).
	NodeName string `json:"node_name,omitempty"`

	// NodeType — тип узла.
	NodeType NodeType `json:"node_type"`

	// Status — статус выполнения узла.
	Status NodeStatus `json:"status"`

	// Input — снимок входных данных узла.
	Input map[string]any `json:"input,omitempty"`

	// Output — снимок выходных данных узла.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, пока узел выполняется.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// DurationMs — продолжительность выполнения в миллисекундах.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewNodeExecutionRecord создаёт запись в статусе running
// со снимком входных данных.
func NewNodeExecutionRecord(sessionID uuid.UUID, node *NodeSpec, input map[string]any) *NodeExecutionRecord {
	return &NodeExecutionRecord{
		SessionID: sessionID,
		NodeID:    node.ID,
		NodeName:  node.Name,
		NodeType:  node.Type,
		Status:    NodeStatusRunning,
		Input:     input,
		StartedAt: time.Now(),
	}
}

// MarkCompleted переводит запись в статус completed с output.
func (r *NodeExecutionRecord) MarkCompleted(output map[string]any) {
	now := time.Now()
	r.Status = NodeStatusCompleted
	r.Output = output
	r.FinishedAt = &now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
}

// MarkFailed переводит запись в статус failed с текстом ошибки.
func (r *NodeExecutionRecord) MarkFailed(err string) {
	now := time.Now()
	r.Status = NodeStatusFailed
	r.Error = err
	r.FinishedAt = &now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
}

// Duration возвращает продолжительность выполнения.
func (r *NodeExecutionRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
