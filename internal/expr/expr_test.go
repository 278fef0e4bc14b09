package expr

import (
	"errors"
	"testing"
)

func TestEval_Literals(t *testing.T) {
	tests := []struct {
		expr     string
		expected any
	}{
		{"42", 42.0},
		{"3.14", 3.14},
		{"'hello'", "hello"},
		{`"world"`, "world"},
		{"true", true},
		{"false", false},
		{"null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEval_Arithmetic(t *testing.T) {
	tests := []struct {
		expr     string
		expected float64
	}{
		{"1 + 2", 3},
		{"10 - 4", 6},
		{"3 * 4", 12},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-5 + 10", 5},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEval_DivisionByZero(t *testing.T) {
	_, err := Eval("1 / 0", nil)
	if !errors.Is(err, ErrEvalExpr) {
		t.Errorf("expected ErrEvalExpr, got %v", err)
	}
}

func TestEval_FieldAccess(t *testing.T) {
	scope := map[string]any{
		"user": map[string]any{
			"name": "alice",
			"age":  30,
		},
		"items": []any{"a", "b", "c"},
	}

	tests := []struct {
		expr     string
		expected any
	}{
		{"user.name", "alice"},
		{"items.1", "b"},
		{"user.age >= 18", true},
		{"user.missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEval_BooleanLogic(t *testing.T) {
	scope := map[string]any{"a": 5.0, "b": "x"}

	tests := []struct {
		expr     string
		expected bool
	}{
		{"a > 3 && b == 'x'", true},
		{"a > 10 || b == 'x'", true},
		{"a > 10 && b == 'x'", false},
		{"!(a > 10)", true},
		{"!true", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalBool(tt.expr, scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEval_KeywordOperators(t *testing.T) {
	scope := map[string]any{
		"name": "workflow-engine",
		"tags": []any{"infra", "core"},
	}

	tests := []struct {
		expr     string
		expected bool
	}{
		{"name contains 'flow'", true},
		{"name startsWith 'workflow'", true},
		{"name endsWith 'engine'", true},
		{"'infra' in tags", true},
		{"'web' in tags", false},
		{"name in ['workflow-engine', 'other']", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalBool(tt.expr, scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEval_ParseErrors(t *testing.T) {
	exprs := []string{
		"1 +",
		"(1 + 2",
		"'unterminated",
		"a ==",
		"@invalid",
	}

	for _, e := range exprs {
		t.Run(e, func(t *testing.T) {
			if _, err := Eval(e, nil); !errors.Is(err, ErrParseExpr) {
				t.Errorf("expected ErrParseExpr, got %v", err)
			}
		})
	}
}

func TestCompare_Operators(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		left     any
		right    any
		expected bool
	}{
		{"numeric equal coercion", OpEqual, 5, 5.0, true},
		{"not equal", OpNotEqual, "a", "b", true},
		{"greater", OpGreater, 7.0, 5, true},
		{"greater equal boundary", OpGreaterEqual, 5.0, 5, true},
		{"less", OpLess, 3.0, 5, true},
		{"less equal", OpLessEqual, 5, 5.0, true},
		{"string ordering", OpGreater, "b", "a", true},
		{"contains substring", OpContains, "hello world", "world", true},
		{"contains list element", OpContains, []any{1.0, 2.0}, 2, true},
		{"starts with", OpStartsWith, "dirigent", "dir", true},
		{"ends with", OpEndsWith, "dirigent", "gent", true},
		{"in list", OpIn, "a", []any{"a", "b"}, true},
		{"in string", OpIn, "ell", "hello", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.operator, tt.left, tt.right)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	_, err := Compare("~=", 1, 2)
	if !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestComparison_Evaluate(t *testing.T) {
	// Кейс из контракта condition-узла: score >= 5.
	c := &Comparison{Field: "score", Operator: OpGreaterEqual, Value: 5}

	got, err := c.Evaluate(map[string]any{"score": 7.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("score 7 >= 5 should be true")
	}

	got, err = c.Evaluate(map[string]any{"score": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("score 3 >= 5 should be false")
	}
}

func TestTruthy(t *testing.T) {
	truthy := []any{true, 1, "x", []any{1}, map[string]any{"k": 1}}
	falsy := []any{nil, false, 0, 0.0, "", []any{}, map[string]any{}}

	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("%v (%T) should be truthy", v, v)
		}
	}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("%v (%T) should be falsy", v, v)
		}
	}
}
