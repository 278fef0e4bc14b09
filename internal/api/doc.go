// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (хранилища, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - workflow_handler.go — обработчики для /workflows
//   - session_handler.go  — обработчики для /sessions
//
// API предоставляет REST endpoints для управления workflow
// и сессиями их выполнения. Сам API сессии не выполняет:
// созданная сессия уходит в очередь, её забирает engine.
package api
