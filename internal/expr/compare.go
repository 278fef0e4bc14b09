package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Операторы структурного сравнения (узлы condition и branch).
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpContains     = "contains"
	OpStartsWith   = "startsWith"
	OpEndsWith     = "endsWith"
	OpIn           = "in"
)

// Operators — закрытый набор операторов сравнения.
var Operators = []string{
	OpEqual, OpNotEqual,
	OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
	OpContains, OpStartsWith, OpEndsWith, OpIn,
}

// Comparison — структурное сравнение: поле входных данных
// против значения из конфигурации.
type Comparison struct {
	// Field — dot-путь к полю входных данных.
	Field string

	// Operator — оператор из набора Operators.
	Operator string

	// Value — правый операнд сравнения.
	Value any
}

// Evaluate вычисляет сравнение против входных данных.
func (c *Comparison) Evaluate(input map[string]any) (bool, error) {
	if c.Field == "" {
		return false, fmt.Errorf("%w: comparison field is empty", ErrEvalExpr)
	}
	left, _ := Lookup(c.Field, input)
	return Compare(c.Operator, left, c.Value)
}

// Compare применяет оператор сравнения к двум значениям.
//
// Числа сравниваются как float64 независимо от исходного типа.
// contains работает для строк (подстрока) и списков (элемент).
// in — обратный contains: левый операнд ищется в правом.
func Compare(operator string, left, right any) (bool, error) {
	switch operator {
	case OpEqual:
		return looseEqual(left, right), nil
	case OpNotEqual:
		return !looseEqual(left, right), nil

	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return compareOrdered(operator, left, right)

	case OpContains:
		return containsValue(left, right)
	case OpStartsWith:
		ls, rs, err := bothStrings(operator, left, right)
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(ls, rs), nil
	case OpEndsWith:
		ls, rs, err := bothStrings(operator, left, right)
		if err != nil {
			return false, err
		}
		return strings.HasSuffix(ls, rs), nil
	case OpIn:
		return containsValue(right, left)

	default:
		return false, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownOperator, operator, strings.Join(Operators, ", "))
	}
}

// looseEqual сравнивает значения с числовой коэрцией:
// 5 (int) равно 5.0 (float64).
func looseEqual(left, right any) bool {
	lf, lok := toNumber(left)
	rf, rok := toNumber(right)
	if lok && rok {
		return lf == rf
	}
	return reflect.DeepEqual(left, right)
}

// compareOrdered сравнивает упорядочиваемые значения: числа или строки.
func compareOrdered(operator string, left, right any) (bool, error) {
	lf, lok := toNumber(left)
	rf, rok := toNumber(right)
	if lok && rok {
		switch operator {
		case OpGreater:
			return lf > rf, nil
		case OpGreaterEqual:
			return lf >= rf, nil
		case OpLess:
			return lf < rf, nil
		case OpLessEqual:
			return lf <= rf, nil
		}
	}

	ls, lsok := left.(string)
	rs, rsok := right.(string)
	if lsok && rsok {
		switch operator {
		case OpGreater:
			return ls > rs, nil
		case OpGreaterEqual:
			return ls >= rs, nil
		case OpLess:
			return ls < rs, nil
		case OpLessEqual:
			return ls <= rs, nil
		}
	}

	return false, fmt.Errorf("%w: %q requires two numbers or two strings, got %T and %T",
		ErrEvalExpr, operator, left, right)
}

// containsValue: строка содержит подстроку или список содержит элемент.
func containsValue(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		ns, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("%w: contains on string requires string operand, got %T",
				ErrEvalExpr, needle)
		}
		return strings.Contains(h, ns), nil
	case []any:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("%w: contains requires string or list, got %T", ErrEvalExpr, haystack)
	}
}

// bothStrings приводит оба операнда к строкам или возвращает ошибку.
func bothStrings(operator string, left, right any) (string, string, error) {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if !lok || !rok {
		return "", "", fmt.Errorf("%w: %q requires two strings, got %T and %T",
			ErrEvalExpr, operator, left, right)
	}
	return ls, rs, nil
}
