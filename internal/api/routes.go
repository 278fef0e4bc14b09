package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))

	// Sessions
	mux.Handle("GET /api/v1/sessions", chain(http.HandlerFunc(h.ListSessions)))
	mux.Handle("POST /api/v1/workflows/{id}/sessions", chain(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /api/v1/sessions/{id}", chain(http.HandlerFunc(h.GetSession)))
	mux.Handle("POST /api/v1/sessions/{id}/cancel", chain(http.HandlerFunc(h.CancelSession)))
	mux.Handle("GET /api/v1/sessions/{id}/records", chain(http.HandlerFunc(h.ListSessionRecords)))
}
