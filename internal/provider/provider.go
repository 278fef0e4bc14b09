package provider

import (
	"context"
	"time"
)

// CallExecutor выполняет исходящий HTTP-вызов.
type CallExecutor interface {
	Call(ctx context.Context, req *CallRequest) (*CallResult, error)
}

// CallRequest — конфигурация исходящего вызова.
type CallRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	Timeout time.Duration
}

// CallResult — результат вызова.
//
// Транспортные ошибки возвращаются через error, логические
// (HTTP >= 400) — через Success=false с заполненным Error:
// тело и код ответа при этом сохраняются.
type CallResult struct {
	Success    bool
	StatusCode int
	Headers    map[string]string
	Body       any
	Error      string
}

// QueryExecutor выполняет запрос к источнику данных.
type QueryExecutor interface {
	Query(ctx context.Context, query string, params map[string]any) (*QueryResult, error)
}

// QueryResult — результат запроса.
type QueryResult struct {
	Rows          []map[string]any  `json:"rows"`
	RowCount      int               `json:"rowCount"`
	ExecutionTime time.Duration     `json:"executionTime"`
	Schema        map[string]string `json:"schema"`
}

// PromptExecutor выполняет именованный prompt-шаблон над входными данными.
type PromptExecutor interface {
	ExecutePrompt(ctx context.Context, templateID string, input map[string]any) (map[string]any, error)
}

// CompletionProvider выполняет AI-completion.
type CompletionProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// CompletionRequest — запрос к completion-провайдеру.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
}

// CompletionResult — результат completion.
type CompletionResult struct {
	Content string          `json:"content"`
	Model   string          `json:"model"`
	Usage   CompletionUsage `json:"usage"`
}

// CompletionUsage — расход токенов.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Broadcaster — fire-and-forget публикация событий в реальном времени.
// Ошибка публикации не должна ронять выполнение узла.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload map[string]any) error
}
