package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/store"
)

// ListSessions возвращает список сессий с фильтрацией.
// GET /api/v1/sessions?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{}

	if workflowIDStr := r.URL.Query().Get("workflow_id"); workflowIDStr != "" {
		workflowID, err := uuid.Parse(workflowIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.SessionStatus(status)
	}

	filter.Limit = parseIntParam(r.URL.Query().Get("limit"), 50)
	filter.Offset = parseIntParam(r.URL.Query().Get("offset"), 0)

	sessions, err := h.sessions.List(r.Context(), filter)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		result[i] = SessionFromDomain(s)
	}

	List(w, result, len(result))
}

// CreateSession запускает workflow: создаёт сессию в статусе pending
// и уведомляет engine через очередь.
// POST /api/v1/workflows/{id}/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), workflowID)
	if HandleStoreError(w, h.logger, err, "workflow not found") {
		return
	}

	if !wf.IsActive {
		InvalidState(w, "workflow is not active")
		return
	}

	session := domain.NewExecutionSession(wf.ID, req.Input)
	if err := h.sessions.Create(r.Context(), session); err != nil {
		HandleStoreError(w, h.logger, err, "")
		return
	}

	// Публикуем событие в очередь
	if h.publisher != nil {
		if err := h.publisher.PublishSessionPending(r.Context(), session.ID); err != nil {
			h.logger.Warn("failed to publish session.pending", "session_id", session.ID, "error", err)
		}
	}

	Created(w, SessionFromDomain(*session))
}

// GetSession возвращает сессию по ID.
// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "session not found") {
		return
	}

	Success(w, SessionFromDomain(*session))
}

// CancelSession запрашивает отмену сессии.
// POST /api/v1/sessions/{id}/cancel
//
// Отмена кооперативная: статус в хранилище меняется сразу, а engine
// замечает его между узлами. Узел, который уже выполняется,
// не прерывается.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	if err := h.sessions.MarkCancelled(r.Context(), id); err != nil {
		HandleStoreError(w, h.logger, err, "session not found")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "session not found") {
		return
	}

	Success(w, SessionFromDomain(*session))
}

// ListSessionRecords возвращает записи выполнения узлов сессии,
// упорядоченные по времени старта.
// GET /api/v1/sessions/{id}/records
func (h *Handler) ListSessionRecords(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return
	}

	// Проверяем, что сессия существует
	_, err = h.sessions.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "session not found") {
		return
	}

	records, err := h.records.ListBySessionID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]RecordResponse, len(records))
	for i, rec := range records {
		result[i] = RecordFromDomain(rec)
	}

	List(w, result, len(result))
}

// decodeJSON декодирует тело запроса. Пустое тело не ошибка:
// запрос без параметров валиден.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// parseIntParam парсит числовой query-параметр с дефолтным значением.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
