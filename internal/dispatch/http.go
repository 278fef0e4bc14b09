package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/provider"
)

// HTTPHandler — обработчик узла http: исходящий HTTP-вызов.
//
// URL, заголовки и тело рендерятся как шаблоны над входными данными,
// так что конфигурация вида {"url": "https://api/{{user.id}}"} работает
// без отдельного template-узла.
//
// Config:
//   - url (string): URL запроса (обязательно)
//   - method (string): HTTP-метод. Default: GET
//   - headers (map[string]string)
//   - body (any)
//   - timeout_sec (number)
//
// Output:
//   - success (bool)
//   - status_code (int)
//   - headers (map[string]string)
//   - body (any)
type HTTPHandler struct {
	executor provider.CallExecutor
}

func (h *HTTPHandler) Type() domain.NodeType {
	return domain.NodeTypeHTTP
}

func (h *HTTPHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	if h.executor == nil {
		return nil, fmt.Errorf("%w: call executor is not configured", ErrConfiguration)
	}

	cfg := req.Config()
	rawURL := getString(cfg, "url", "")
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrConfiguration)
	}

	url, err := expr.Render(rawURL, req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: url: %v", ErrConfiguration, err)
	}

	var body any
	if raw, ok := cfg["body"]; ok && raw != nil {
		body, err = expr.RenderValue(raw, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: body: %v", ErrConfiguration, err)
		}
	}

	headers := toStringMap(getMap(cfg, "headers"))
	for key, val := range headers {
		rendered, err := expr.Render(val, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: headers[%s]: %v", ErrConfiguration, key, err)
		}
		headers[key] = rendered
	}

	result, err := h.executor.Call(ctx, &provider.CallRequest{
		Method:  getString(cfg, "method", "GET"),
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: getTimeout(cfg, "timeout_sec", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, result.Error)
	}

	return map[string]any{
		"success":     true,
		"status_code": result.StatusCode,
		"headers":     result.Headers,
		"body":        result.Body,
	}, nil
}
