package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// defaultMaxLoopIterations — потолок итераций по умолчанию.
// Достижение потолка останавливает цикл и логируется, но узел
// не падает.
const defaultMaxLoopIterations = 1000

// LoopHandler — обработчик узла loop.
//
// Config:
//   - mode (string): foreach | while | for
//   - items (string): dot-путь к списку во входных данных (foreach)
//   - condition (string): выражение продолжения (while)
//   - count (number): число итераций (for)
//   - max_iterations (number): потолок итераций (default: 1000)
//   - expression (string): выражение тела, вычисляется на каждой
//     итерации в scope {item, index, input}
//
// Output:
//   - iterations (int): фактическое число итераций
//   - results ([]any): результаты выражения по итерациям
//   - truncated (bool): цикл остановлен потолком итераций
type LoopHandler struct{}

func (h *LoopHandler) Type() domain.NodeType {
	return domain.NodeTypeLoop
}

func (h *LoopHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()
	mode := getString(cfg, "mode", "foreach")
	body := getString(cfg, "expression", "")

	ceiling := getInt(cfg, "max_iterations", defaultMaxLoopIterations)
	if ceiling <= 0 {
		return nil, fmt.Errorf("%w: max_iterations must be positive", ErrConfiguration)
	}

	switch mode {
	case "foreach":
		return h.forEach(ctx, req, cfg, body, ceiling)
	case "while":
		return h.while(ctx, req, cfg, body, ceiling)
	case "for":
		return h.forCount(ctx, req, cfg, body, ceiling)
	default:
		return nil, fmt.Errorf("%w: unknown loop mode %q", ErrConfiguration, mode)
	}
}

func (h *LoopHandler) forEach(ctx context.Context, req *Request, cfg map[string]any, body string, ceiling int) (map[string]any, error) {
	itemsPath := getString(cfg, "items", "")
	if itemsPath == "" {
		return nil, fmt.Errorf("%w: items is required for foreach", ErrConfiguration)
	}

	raw, _ := expr.Lookup(itemsPath, req.Input)
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: items %q is not a list", ErrConfiguration, itemsPath)
	}

	truncated := false
	if len(items) > ceiling {
		h.logCeiling(ctx, req, len(items), ceiling)
		items = items[:ceiling]
		truncated = true
	}

	results := make([]any, 0, len(items))
	for i, item := range items {
		result, err := h.iterate(body, item, i, req.Input)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return map[string]any{
		"iterations": len(results),
		"results":    results,
		"truncated":  truncated,
	}, nil
}

func (h *LoopHandler) while(ctx context.Context, req *Request, cfg map[string]any, body string, ceiling int) (map[string]any, error) {
	condition := getString(cfg, "condition", "")
	if condition == "" {
		return nil, fmt.Errorf("%w: condition is required for while", ErrConfiguration)
	}

	var results []any
	truncated := false
	for i := 0; ; i++ {
		if i >= ceiling {
			h.logCeiling(ctx, req, i, ceiling)
			truncated = true
			break
		}

		scope := iterationScope(nil, i, req.Input)
		proceed, err := expr.EvalBool(condition, scope)
		if err != nil {
			return nil, fmt.Errorf("%w: condition: %v", ErrConfiguration, err)
		}
		if !proceed {
			break
		}

		result, err := h.iterate(body, nil, i, req.Input)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return map[string]any{
		"iterations": len(results),
		"results":    results,
		"truncated":  truncated,
	}, nil
}

func (h *LoopHandler) forCount(ctx context.Context, req *Request, cfg map[string]any, body string, ceiling int) (map[string]any, error) {
	count := getInt(cfg, "count", -1)
	if count < 0 {
		return nil, fmt.Errorf("%w: count is required for for", ErrConfiguration)
	}

	truncated := false
	if count > ceiling {
		h.logCeiling(ctx, req, count, ceiling)
		count = ceiling
		truncated = true
	}

	results := make([]any, 0, count)
	for i := 0; i < count; i++ {
		result, err := h.iterate(body, nil, i, req.Input)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return map[string]any{
		"iterations": len(results),
		"results":    results,
		"truncated":  truncated,
	}, nil
}

// iterate вычисляет выражение тела для одной итерации.
// Пустое тело отдаёт сам item.
func (h *LoopHandler) iterate(body string, item any, index int, input map[string]any) (any, error) {
	if body == "" {
		return item, nil
	}
	result, err := expr.Eval(body, iterationScope(item, index, input))
	if err != nil {
		return nil, fmt.Errorf("%w: expression: %v", ErrConfiguration, err)
	}
	return result, nil
}

func iterationScope(item any, index int, input map[string]any) map[string]any {
	return map[string]any{
		"item":  item,
		"index": float64(index),
		"input": input,
	}
}

func (h *LoopHandler) logCeiling(ctx context.Context, req *Request, size, ceiling int) {
	telemetry.FromContext(ctx).Warn("loop iteration ceiling reached",
		"node_id", req.Node.ID,
		"size", size,
		"ceiling", ceiling,
	)
}
