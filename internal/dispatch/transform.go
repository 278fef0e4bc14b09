package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
)

// TransformHandler — обработчик узла transform.
//
// Config:
//   - mapping (map[string]string): ключ выхода → выражение над входом,
//     ИЛИ
//   - expression (string): одно выражение, результат кладётся в "result"
//
// Output: объект по mapping'у либо {result: значение}.
type TransformHandler struct{}

func (h *TransformHandler) Type() domain.NodeType {
	return domain.NodeTypeTransform
}

func (h *TransformHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()

	if mapping := getMap(cfg, "mapping"); mapping != nil {
		output := make(map[string]any, len(mapping))
		for key, raw := range mapping {
			expression, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mapping[%s] must be a string expression", ErrConfiguration, key)
			}
			val, err := expr.Eval(expression, req.Input)
			if err != nil {
				return nil, fmt.Errorf("%w: mapping[%s]: %v", ErrConfiguration, key, err)
			}
			output[key] = val
		}
		return output, nil
	}

	expression := getString(cfg, "expression", "")
	if expression == "" {
		return nil, fmt.Errorf("%w: either mapping or expression is required", ErrConfiguration)
	}
	val, err := expr.Eval(expression, req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: expression: %v", ErrConfiguration, err)
	}
	return map[string]any{"result": val}, nil
}
