package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultCallTimeout = 30 * time.Second

// HTTPCallExecutor — реализация CallExecutor поверх net/http.
type HTTPCallExecutor struct {
	client *http.Client
}

// NewHTTPCallExecutor создаёт HTTPCallExecutor.
func NewHTTPCallExecutor() *HTTPCallExecutor {
	return &HTTPCallExecutor{client: &http.Client{}}
}

// Call выполняет HTTP-запрос.
func (e *HTTPCallExecutor) Call(ctx context.Context, req *CallRequest) (*CallResult, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrCall)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrCall, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrCall, err)
	}

	for key, val := range req.Headers {
		httpReq.Header.Set(key, val)
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCall, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrCall, err)
	}

	result := buildCallResult(resp, respBody)

	// HTTP >= 400 — логическая ошибка, тело ответа сохраняется.
	if resp.StatusCode >= 400 {
		result.Success = false
		result.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return result, nil
}

// buildCallResult формирует результат из HTTP-ответа.
func buildCallResult(resp *http.Response, body []byte) *CallResult {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	// Парсим body: пробуем JSON, иначе строка.
	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return &CallResult{
		Success:    true,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       parsedBody,
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
