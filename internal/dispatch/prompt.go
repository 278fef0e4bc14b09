package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/provider"
)

// PromptHandler — обработчик узла prompt: выполняет именованный
// prompt-шаблон через внешний исполнитель.
//
// Config:
//   - template_id (string): идентификатор шаблона (обязательно)
//
// Output: объект результата исполнителя.
type PromptHandler struct {
	executor provider.PromptExecutor
}

func (h *PromptHandler) Type() domain.NodeType {
	return domain.NodeTypePrompt
}

func (h *PromptHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	if h.executor == nil {
		return nil, fmt.Errorf("%w: prompt executor is not configured", ErrConfiguration)
	}

	templateID := getString(req.Config(), "template_id", "")
	if templateID == "" {
		return nil, fmt.Errorf("%w: template_id is required", ErrConfiguration)
	}

	output, err := h.executor.ExecutePrompt(ctx, templateID, req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return output, nil
}
