package expr

import "errors"

// Ошибки вычисления выражений.
var (
	// ErrParseExpr — выражение не распарсилось.
	ErrParseExpr = errors.New("expression parse failed")

	// ErrEvalExpr — ошибка вычисления выражения.
	ErrEvalExpr = errors.New("expression evaluation failed")

	// ErrUnknownOperator — оператор вне закрытого набора.
	ErrUnknownOperator = errors.New("unknown comparison operator")

	// ErrRenderTemplate — ошибка рендеринга шаблона.
	ErrRenderTemplate = errors.New("template render failed")
)
