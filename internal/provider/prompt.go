package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultPromptTimeout = 120 * time.Second

// HTTPPromptExecutor — реализация PromptExecutor поверх внешнего
// prompt-сервиса: POST {template_id, input} → JSON-объект результата.
//
// Конфигурация через окружение:
//   - PROMPT_SERVICE_URL — URL сервиса (обязательно)
//   - PROMPT_SERVICE_KEY — ключ (опционально, Bearer)
type HTTPPromptExecutor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPPromptExecutor создаёт исполнителя из окружения.
func NewHTTPPromptExecutor() *HTTPPromptExecutor {
	return &HTTPPromptExecutor{
		baseURL: os.Getenv("PROMPT_SERVICE_URL"),
		apiKey:  os.Getenv("PROMPT_SERVICE_KEY"),
		client:  &http.Client{Timeout: defaultPromptTimeout},
	}
}

// ExecutePrompt выполняет шаблон templateID над входными данными.
func (e *HTTPPromptExecutor) ExecutePrompt(ctx context.Context, templateID string, input map[string]any) (map[string]any, error) {
	if e.baseURL == "" {
		return nil, fmt.Errorf("%w: PROMPT_SERVICE_URL is not configured", ErrPrompt)
	}
	if templateID == "" {
		return nil, fmt.Errorf("%w: template id is required", ErrPrompt)
	}

	payload, err := json.Marshal(map[string]any{
		"template_id": templateID,
		"input":       input,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrPrompt, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/v1/prompts/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrPrompt, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrompt, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPrompt, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrPrompt, resp.StatusCode, truncate(string(body), 200))
	}

	var output map[string]any
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrPrompt, err)
	}
	return output, nil
}
