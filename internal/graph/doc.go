// Package graph отвечает за структуру workflow: парсинг определения
// и порядок выполнения узлов.
//
// Включает:
//   - parser.go — парсинг Document из JSON/YAML, нормализация
//     легаси connections[] в edges[]
//   - graph.go  — построение графа зависимостей и топологическая
//     сортировка (алгоритм Кана)
//
// Сортировка best-effort: узлы, не достигшие нулевой in-degree
// (циклы, ссылки на отсутствующие ID), не приводят к ошибке —
// они добавляются после корректно отсортированного префикса
// в порядке определения, а их ID возвращаются в Deferred
// для логирования предупреждения.
package graph
