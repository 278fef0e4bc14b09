package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	IsActive    bool             `json:"is_active"`
	NodeCount   int              `json:"node_count,omitempty"`
	Nodes       []map[string]any `json:"nodes,omitempty"`
	Edges       []map[string]any `json:"edges,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// SessionResponse — сессия из API.
type SessionResponse struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	Status      string         `json:"status"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Depth       int            `json:"depth,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
}

// RecordResponse — запись выполнения узла из API.
type RecordResponse struct {
	SessionID  string         `json:"session_id"`
	NodeID     string         `json:"node_id"`
	NodeName   string         `json:"node_name,omitempty"`
	NodeType   string         `json:"node_type"`
	Status     string         `json:"status"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  string         `json:"started_at"`
	FinishedAt string         `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// --- Request types ---

// UpdateWorkflowRequest — обновление workflow.
type UpdateWorkflowRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	Definition  json.RawMessage `json:"definition,omitempty"`
}

// CreateSessionRequest — запуск workflow.
type CreateSessionRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// ListSessionsOpts — параметры фильтрации сессий.
type ListSessionsOpts struct {
	WorkflowID string
	Status     string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Dirigent API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает все workflow.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт workflow из документа определения
// (JSON или YAML, тело передаётся как есть).
func (c *Client) CreateWorkflow(definition []byte) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.postRaw("/api/v1/workflows", definition, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// UpdateWorkflow обновляет workflow.
func (c *Client) UpdateWorkflow(id string, req UpdateWorkflowRequest) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.put("/api/v1/workflows/"+id, req, &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// --- Sessions ---

// ListSessions возвращает список сессий с фильтрацией.
func (c *Client) ListSessions(opts ListSessionsOpts) ([]SessionResponse, error) {
	params := url.Values{}
	if opts.WorkflowID != "" {
		params.Set("workflow_id", opts.WorkflowID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var sessions []SessionResponse
	err := c.list("/api/v1/sessions", params, &sessions)
	return sessions, err
}

// CreateSession запускает workflow.
func (c *Client) CreateSession(workflowID string, req CreateSessionRequest) (*SessionResponse, error) {
	var session SessionResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/sessions", req, &session)
	return &session, err
}

// GetSession возвращает сессию по ID.
func (c *Client) GetSession(id string) (*SessionResponse, error) {
	var session SessionResponse
	err := c.get("/api/v1/sessions/"+id, &session)
	return &session, err
}

// CancelSession запрашивает отмену сессии.
func (c *Client) CancelSession(id string) (*SessionResponse, error) {
	var session SessionResponse
	err := c.post("/api/v1/sessions/"+id+"/cancel", nil, &session)
	return &session, err
}

// ListRecords возвращает записи выполнения узлов сессии.
func (c *Client) ListRecords(sessionID string) ([]RecordResponse, error) {
	var records []RecordResponse
	err := c.list("/api/v1/sessions/"+sessionID+"/records", nil, &records)
	return records, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(lr.Data) == 0 || string(lr.Data) == "null" {
		return nil
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	return c.doRaw(method, path, bodyReader, result)
}

// postRaw отправляет тело запроса как есть, без JSON-маршалинга.
func (c *Client) postRaw(path string, body []byte, result any) error {
	return c.doRaw(http.MethodPost, path, bytes.NewReader(body), result)
}

func (c *Client) doRaw(method, path string, body io.Reader, result any) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
