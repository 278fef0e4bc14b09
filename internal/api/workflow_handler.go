package api

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/graph"
)

// Объём тела запроса с определением workflow ограничен:
// граф на мегабайты — почти наверняка ошибка клиента.
const maxDefinitionBytes = 4 << 20

// ListWorkflows возвращает список всех workflow (без графов).
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowSummary, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowSummaryFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт workflow из документа определения.
// POST /api/v1/workflows
//
// Тело запроса — сам документ (JSON или YAML): nodes[] и
// edges[] либо легаси connections[].
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionBytes))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	wf, err := graph.ParseDefinition(body)
	if err != nil {
		BadRequest(w, "invalid workflow definition: "+err.Error())
		return
	}

	now := time.Now()
	wf.ID = uuid.New()
	wf.IsActive = true
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if err := h.workflows.Create(r.Context(), wf); err != nil {
		HandleStoreError(w, h.logger, err, "")
		return
	}

	Created(w, WorkflowFromDomain(*wf))
}

// GetWorkflow возвращает workflow по ID вместе с графом.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// UpdateWorkflow обновляет workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleStoreError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Definition != nil {
		parsed, err := graph.ParseDefinition(req.Definition)
		if err != nil {
			BadRequest(w, "invalid workflow definition: "+err.Error())
			return
		}
		wf.Nodes = parsed.Nodes
		wf.Edges = parsed.Edges
		if parsed.Name != "" {
			wf.Name = parsed.Name
		}
		if parsed.Description != "" {
			wf.Description = parsed.Description
		}
	}
	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	wf.UpdatedAt = time.Now()
	if err := h.workflows.Update(r.Context(), wf); err != nil {
		HandleStoreError(w, h.logger, err, "workflow not found")
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), id); err != nil {
		HandleStoreError(w, h.logger, err, "workflow not found")
		return
	}

	NoContent(w)
}
