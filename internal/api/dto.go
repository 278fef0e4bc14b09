package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
)

// Workflow DTOs

// UpdateWorkflowRequest — запрос на обновление workflow.
//
// Definition, если задан, — полный документ определения
// (nodes[] + edges[] или легаси connections[]), замещающий граф целиком.
type UpdateWorkflowRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	Definition  json.RawMessage `json:"definition,omitempty"`
}

// WorkflowSummary — workflow без графа (для списков).
type WorkflowSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	NodeCount   int       `json:"node_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkflowResponse — полный workflow вместе с графом.
type WorkflowResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Nodes       []domain.NodeSpec `json:"nodes"`
	Edges       []domain.Edge     `json:"edges"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// WorkflowSummaryFromDomain конвертирует domain.WorkflowDefinition в WorkflowSummary.
func WorkflowSummaryFromDomain(wf domain.WorkflowDefinition) WorkflowSummary {
	return WorkflowSummary{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		IsActive:    wf.IsActive,
		NodeCount:   len(wf.Nodes),
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// WorkflowFromDomain конвертирует domain.WorkflowDefinition в WorkflowResponse.
func WorkflowFromDomain(wf domain.WorkflowDefinition) WorkflowResponse {
	return WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		Nodes:       wf.Nodes,
		Edges:       wf.Edges,
		IsActive:    wf.IsActive,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// Session DTOs

// CreateSessionRequest — запрос на запуск workflow.
type CreateSessionRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// SessionResponse — ответ с сессией.
type SessionResponse struct {
	ID          uuid.UUID      `json:"id"`
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	Status      string         `json:"status"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Depth       int            `json:"depth,omitempty"`
	ParentID    *uuid.UUID     `json:"parent_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// SessionFromDomain конвертирует domain.ExecutionSession в SessionResponse.
func SessionFromDomain(s domain.ExecutionSession) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		WorkflowID:  s.WorkflowID,
		Status:      string(s.Status),
		Input:       s.Input,
		Output:      s.Output,
		Error:       s.Error,
		Depth:       s.Depth,
		ParentID:    s.ParentID,
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

// Record DTOs

// RecordResponse — запись аудита выполнения узла.
type RecordResponse struct {
	SessionID  uuid.UUID      `json:"session_id"`
	NodeID     string         `json:"node_id"`
	NodeName   string         `json:"node_name,omitempty"`
	NodeType   string         `json:"node_type"`
	Status     string         `json:"status"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// RecordFromDomain конвертирует domain.NodeExecutionRecord в RecordResponse.
func RecordFromDomain(r domain.NodeExecutionRecord) RecordResponse {
	return RecordResponse{
		SessionID:  r.SessionID,
		NodeID:     r.NodeID,
		NodeName:   r.NodeName,
		NodeType:   string(r.NodeType),
		Status:     string(r.Status),
		Input:      r.Input,
		Output:     r.Output,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.DurationMs,
	}
}
