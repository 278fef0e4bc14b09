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

const defaultCompletionTimeout = 120 * time.Second

// ChatCompletionProvider — реализация CompletionProvider поверх
// OpenAI-совместимого chat completions API.
//
// Конфигурация через окружение:
//   - COMPLETION_URL — базовый URL API (обязательно)
//   - COMPLETION_API_KEY — ключ (опционально, Bearer)
//   - COMPLETION_MODEL — модель по умолчанию
type ChatCompletionProvider struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
}

// NewChatCompletionProvider создаёт провайдера из окружения.
func NewChatCompletionProvider() *ChatCompletionProvider {
	return &ChatCompletionProvider{
		baseURL:      os.Getenv("COMPLETION_URL"),
		apiKey:       os.Getenv("COMPLETION_API_KEY"),
		defaultModel: os.Getenv("COMPLETION_MODEL"),
		client:       &http.Client{Timeout: defaultCompletionTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage CompletionUsage `json:"usage"`
}

// Complete выполняет completion-запрос.
func (p *ChatCompletionProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: COMPLETION_URL is not configured", ErrCompletion)
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrCompletion)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrCompletion, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrCompletion, resp.StatusCode, truncate(string(body), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrCompletion, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrCompletion)
	}

	return &CompletionResult{
		Content: chatResp.Choices[0].Message.Content,
		Model:   chatResp.Model,
		Usage:   chatResp.Usage,
	}, nil
}
