package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
)

// WorkflowHandler — обработчик узла workflow: запускает вложенный
// workflow как дочернюю сессию и ждёт её завершения.
//
// Глубину вложенности контролирует SubworkflowRunner по счётчику
// в контексте (см. WithDepth).
//
// Config:
//   - workflow_id (string, uuid): запускаемый workflow (обязательно)
//
// Output: терминальный выход дочерней сессии, без добавок.
type WorkflowHandler struct {
	runner SubworkflowRunner
}

func (h *WorkflowHandler) Type() domain.NodeType {
	return domain.NodeTypeWorkflow
}

func (h *WorkflowHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	if h.runner == nil {
		return nil, fmt.Errorf("%w: subworkflow runner is not configured", ErrConfiguration)
	}

	cfg := req.Config()
	rawID := getString(cfg, "workflow_id", "")
	if rawID == "" {
		return nil, fmt.Errorf("%w: workflow_id is required", ErrConfiguration)
	}
	workflowID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow_id: %v", ErrConfiguration, err)
	}

	return h.runner.RunSubworkflow(ctx, workflowID, req.Input, req.Session)
}
