// Package session управляет жизненным циклом сессий выполнения.
//
// Manager создаёт сессии, прогоняет их по топологическому порядку
// графа (строго последовательно внутри сессии, fail-fast на первой
// ошибке узла), поддерживает кооперативную отмену между узлами и
// рекурсию под-workflow с ограничением глубины.
//
// Разные сессии независимы: Run можно вызывать конкурентно
// для разных сессий.
package session
