package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
)

// BranchHandler — обработчик узла branch.
//
// Перебирает ветки по порядку и выбирает первую, чьё выражение
// истинно; иначе — default (если задан).
//
// Config:
//   - branches ([]{name, expression}): ветки в порядке приоритета
//   - default (string): имя ветки по умолчанию
//
// Output:
//   - branch (string): имя выбранной ветки ("" — ни одна не подошла)
//   - matched (bool): была ли выбрана ветка по условию
type BranchHandler struct{}

func (h *BranchHandler) Type() domain.NodeType {
	return domain.NodeTypeBranch
}

func (h *BranchHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()

	rawBranches, ok := cfg["branches"].([]any)
	if !ok || len(rawBranches) == 0 {
		return nil, fmt.Errorf("%w: branches is required", ErrConfiguration)
	}

	for i, raw := range rawBranches {
		branch, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: branches[%d] must be an object", ErrConfiguration, i)
		}
		name := getString(branch, "name", "")
		expression := getString(branch, "expression", "")
		if name == "" || expression == "" {
			return nil, fmt.Errorf("%w: branches[%d] needs name and expression", ErrConfiguration, i)
		}

		matched, err := expr.EvalBool(expression, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: branches[%d]: %v", ErrConfiguration, i, err)
		}
		if matched {
			return map[string]any{"branch": name, "matched": true}, nil
		}
	}

	if def := getString(cfg, "default", ""); def != "" {
		return map[string]any{"branch": def, "matched": false}, nil
	}
	return map[string]any{"branch": "", "matched": false}, nil
}
