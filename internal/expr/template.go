package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Синтаксисы плейсхолдеров: {{ path }} и ${ path }.
var (
	bracePattern  = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)
	dollarPattern = regexp.MustCompile(`\$\{\s*([^}]+?)\s*\}`)
)

// Render подставляет значения из scope в текстовый шаблон.
//
// Поддерживаются оба синтаксиса одновременно:
//
//	"Hello, {{ user.name }}!"
//	"Hello, ${user.name}!"
//
// Внутри плейсхолдера допустим dot-путь или полноценное
// выражение (см. Eval). Неразрешимый путь подставляется
// как пустая строка; ошибка парсинга выражения — ошибка рендеринга.
func Render(tmpl string, scope map[string]any) (string, error) {
	out, err := renderPattern(tmpl, bracePattern, scope)
	if err != nil {
		return "", err
	}
	return renderPattern(out, dollarPattern, scope)
}

// renderPattern подставляет один синтаксис плейсхолдеров.
func renderPattern(tmpl string, pattern *regexp.Regexp, scope map[string]any) (string, error) {
	var firstErr error
	out := pattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := pattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		inner := strings.TrimSpace(groups[1])

		value, err := Eval(inner, scope)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %q: %v", ErrRenderTemplate, inner, err)
			}
			return match
		}
		return Stringify(value)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// RenderValue рендерит произвольное значение: строки через Render,
// map и slice — рекурсивно, остальные типы как есть.
func RenderValue(value any, scope map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		// Плейсхолдер, занимающий всю строку, сохраняет тип значения:
		// "{{ count }}" → 42, а не "42".
		if inner, ok := wholePlaceholder(v); ok {
			return Eval(inner, scope)
		}
		return Render(v, scope)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, scope)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, scope)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// wholePlaceholder проверяет, что строка целиком — один плейсхолдер,
// и возвращает его содержимое.
func wholePlaceholder(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	for _, pattern := range []*regexp.Regexp{bracePattern, dollarPattern} {
		loc := pattern.FindStringIndex(trimmed)
		if loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
			groups := pattern.FindStringSubmatch(trimmed)
			return strings.TrimSpace(groups[1]), true
		}
	}
	return "", false
}

// Stringify переводит значение в строку для подстановки в текст.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		// Целые числа без дробного хвоста: 42, а не 42.000000.
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
