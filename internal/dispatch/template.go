package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
)

// TemplateHandler — обработчик узла template.
//
// Рендерит строковый шаблон над входными данными. Поддерживаются
// оба синтаксиса плейсхолдеров: {{path}} и ${path}; неразрешённый
// путь рендерится пустой строкой.
//
// Config:
//   - template (string): шаблон (обязательно)
//   - key (string): имя ключа результата. Default: "rendered"
//
// Output:
//   - <key> (string): отрендеренная строка
type TemplateHandler struct{}

func (h *TemplateHandler) Type() domain.NodeType {
	return domain.NodeTypeTemplate
}

func (h *TemplateHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()

	template := getString(cfg, "template", "")
	if template == "" {
		return nil, fmt.Errorf("%w: template is required", ErrConfiguration)
	}

	rendered, err := expr.Render(template, req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	key := getString(cfg, "key", "rendered")
	return map[string]any{key: rendered}, nil
}
