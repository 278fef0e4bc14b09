package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/provider"
)

// CompletionHandler — обработчик узла completion: AI-completion
// через внешнего провайдера.
//
// Prompt и system_prompt рендерятся как шаблоны над входными данными.
//
// Config:
//   - prompt (string): шаблон запроса (обязательно)
//   - system_prompt (string): шаблон системного промпта
//   - model (string)
//   - max_tokens (number)
//   - temperature (number)
//
// Output:
//   - content (string)
//   - model (string)
//   - usage (map): расход токенов
type CompletionHandler struct {
	prov provider.CompletionProvider
}

func (h *CompletionHandler) Type() domain.NodeType {
	return domain.NodeTypeCompletion
}

func (h *CompletionHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	if h.prov == nil {
		return nil, fmt.Errorf("%w: completion provider is not configured", ErrConfiguration)
	}

	cfg := req.Config()
	rawPrompt := getString(cfg, "prompt", "")
	if rawPrompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrConfiguration)
	}

	prompt, err := expr.Render(rawPrompt, req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt: %v", ErrConfiguration, err)
	}
	systemPrompt, err := expr.Render(getString(cfg, "system_prompt", ""), req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: system_prompt: %v", ErrConfiguration, err)
	}

	result, err := h.prov.Complete(ctx, &provider.CompletionRequest{
		Model:        getString(cfg, "model", ""),
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		MaxTokens:    getInt(cfg, "max_tokens", 0),
		Temperature:  getFloat(cfg, "temperature", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return map[string]any{
		"content": result.Content,
		"model":   result.Model,
		"usage": map[string]any{
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"total_tokens":      result.Usage.TotalTokens,
		},
	}, nil
}
