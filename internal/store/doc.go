// Package store содержит репозитории для работы с PostgreSQL.
//
// Каждый репозиторий инкапсулирует SQL-запросы для одной сущности:
//   - WorkflowRepo — определения workflow (workflows)
//   - SessionRepo — сессии выполнения (sessions)
//   - RecordRepo — записи выполнения узлов (node_records)
//   - DataRepo — данные сессии (session_data)
//
// Все репозитории работают через общий pgxpool.Pool (см. NewPool).
package store
