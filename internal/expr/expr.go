package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Eval вычисляет выражение в заданном scope.
//
// Поддерживаемое подмножество:
//   - литералы: числа, строки ('...' или "..."), true/false/null,
//     списки [a, b, c]
//   - доступ к полям по dot-пути: user.address.city, items.0.name
//   - сравнения: ==, !=, >, >=, <, <=, contains, startsWith, endsWith, in
//   - булева логика: &&, ||, !
//   - арифметика: +, -, *, /, %
//
// Это сознательно НЕ встраиваемый язык: ни вызовов функций,
// ни присваиваний, ни циклов — только вычисление значения
// над входными данными.
func Eval(expression string, scope map[string]any) (any, error) {
	p, err := newParser(expression)
	if err != nil {
		return nil, err
	}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("%w: unexpected %q", ErrParseExpr, p.peek().text)
	}
	return node.eval(scope)
}

// EvalBool вычисляет выражение и приводит результат к bool
// по правилам truthiness (см. Truthy).
func EvalBool(expression string, scope map[string]any) (bool, error) {
	v, err := Eval(expression, scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy возвращает истинность значения: false для nil, false,
// нуля, пустой строки, пустого списка и пустой map.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// Lookup разрешает dot-путь в scope.
// Сегменты-числа индексируют списки: "items.0.name".
func Lookup(path string, scope map[string]any) (any, bool) {
	var current any = scope
	for _, seg := range strings.Split(path, ".") {
		switch c := current.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			current = c[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// --- AST ---

type node interface {
	eval(scope map[string]any) (any, error)
}

// literalNode — литерал (число, строка, bool, null, список литералов).
type literalNode struct {
	value any
}

func (n *literalNode) eval(map[string]any) (any, error) {
	return n.value, nil
}

// pathNode — доступ к полю по dot-пути.
// Отсутствующий путь разрешается в nil, а не в ошибку:
// условия вида `status == null` должны работать на неполных данных.
type pathNode struct {
	path string
}

func (n *pathNode) eval(scope map[string]any) (any, error) {
	v, _ := Lookup(n.path, scope)
	return v, nil
}

// listNode — список выражений [a, b, c].
type listNode struct {
	items []node
}

func (n *listNode) eval(scope map[string]any) (any, error) {
	out := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(scope)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// unaryNode — унарные ! и -.
type unaryNode struct {
	op    string
	child node
}

func (n *unaryNode) eval(scope map[string]any) (any, error) {
	v, err := n.child.eval(scope)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !Truthy(v), nil
	case "-":
		f, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %T", ErrEvalExpr, v)
		}
		return -f, nil
	}
	return nil, fmt.Errorf("%w: unknown unary operator %q", ErrEvalExpr, n.op)
}

// binaryNode — бинарная операция.
type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(scope map[string]any) (any, error) {
	// && и || — короткое замыкание.
	if n.op == "&&" || n.op == "||" {
		lv, err := n.left.eval(scope)
		if err != nil {
			return nil, err
		}
		lt := Truthy(lv)
		if n.op == "&&" && !lt {
			return false, nil
		}
		if n.op == "||" && lt {
			return true, nil
		}
		rv, err := n.right.eval(scope)
		if err != nil {
			return nil, err
		}
		return Truthy(rv), nil
	}

	lv, err := n.left.eval(scope)
	if err != nil {
		return nil, err
	}
	rv, err := n.right.eval(scope)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+", "-", "*", "/", "%":
		return arithmetic(n.op, lv, rv)
	default:
		return Compare(n.op, lv, rv)
	}
}

// arithmetic выполняет арифметическую операцию.
// "+" для двух строк — конкатенация.
func arithmetic(op string, lv, rv any) (any, error) {
	if op == "+" {
		ls, lok := lv.(string)
		rs, rok := rv.(string)
		if lok && rok {
			return ls + rs, nil
		}
	}

	lf, lok := toNumber(lv)
	rf, rok := toNumber(rv)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %q requires numbers, got %T and %T", ErrEvalExpr, op, lv, rv)
	}

	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrEvalExpr)
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrEvalExpr)
		}
		return float64(int64(lf) % int64(rf)), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrEvalExpr, op)
}

// toNumber приводит значение к float64.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
