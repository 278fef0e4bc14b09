// Package expr — маленький изолированный интерпретатор выражений
// для узлов condition, branch, loop и transform.
//
// Включает:
//   - expr.go     — AST и вычисление (Eval, EvalBool, Lookup, Truthy)
//   - parser.go   — лексер и рекурсивный спуск
//   - compare.go  — структурные сравнения (Comparison, Compare)
//   - template.go — подстановка плейсхолдеров ({{ path }} и ${ path })
//
// Набор возможностей сознательно ограничен документированными
// операторами: доступ к полям, сравнения, булева логика, арифметика,
// литералы. Ни вызовов функций, ни произвольного исполнения кода —
// выражение может только вычислить значение над входными данными.
package expr
