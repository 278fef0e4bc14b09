package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
)

// ConditionHandler — обработчик узла condition.
//
// Config:
//   - expression (string): выражение над входными данными, ИЛИ
//   - field + operator + value: одиночное сравнение
//     (==, !=, >, >=, <, <=, contains, startsWith, endsWith, in)
//   - trueOutput / falseOutput: значение для output по исходу проверки
//
// Output:
//   - result (bool): результат проверки
//   - output: trueOutput либо falseOutput (если сконфигурированы)
type ConditionHandler struct{}

func (h *ConditionHandler) Type() domain.NodeType {
	return domain.NodeTypeCondition
}

func (h *ConditionHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()

	result, err := h.evaluate(cfg, req.Input)
	if err != nil {
		return nil, err
	}

	output := map[string]any{"result": result}
	branchKey := "falseOutput"
	if result {
		branchKey = "trueOutput"
	}
	if branch, ok := cfg[branchKey]; ok {
		output["output"] = branch
	}
	return output, nil
}

func (h *ConditionHandler) evaluate(cfg, input map[string]any) (bool, error) {
	if expression := getString(cfg, "expression", ""); expression != "" {
		result, err := expr.EvalBool(expression, input)
		if err != nil {
			return false, fmt.Errorf("%w: expression: %v", ErrConfiguration, err)
		}
		return result, nil
	}

	field := getString(cfg, "field", "")
	operator := getString(cfg, "operator", "")
	if field == "" || operator == "" {
		return false, fmt.Errorf("%w: either expression or field+operator is required", ErrConfiguration)
	}

	cmp := &expr.Comparison{
		Field:    field,
		Operator: operator,
		Value:    cfg["value"],
	}
	result, err := cmp.Evaluate(input)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return result, nil
}
