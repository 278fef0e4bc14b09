package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/provider"
	"github.com/shaiso/Dirigent/internal/script"
)

func execRequest(typ domain.NodeType, config, input map[string]any) *Request {
	spec := node("n1", typ, config)
	return &Request{
		Session: domain.NewExecutionSession(uuid.New(), input),
		Node:    &spec,
		Input:   input,
	}
}

// --- Condition ---

func TestConditionHandler_Expression(t *testing.T) {
	h := &ConditionHandler{}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeCondition,
		map[string]any{"expression": "score >= 5 && status == 'open'"},
		map[string]any{"score": 7.0, "status": "open"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["result"] != true {
		t.Errorf("expected result=true, got %v", output["result"])
	}
}

func TestConditionHandler_FieldOperatorValue(t *testing.T) {
	config := map[string]any{"field": "score", "operator": ">=", "value": 5}

	h := &ConditionHandler{}
	output, err := h.Execute(context.Background(),
		execRequest(domain.NodeTypeCondition, config, map[string]any{"score": 7.0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["result"] != true {
		t.Errorf("score 7 >= 5: expected true, got %v", output["result"])
	}

	output, err = h.Execute(context.Background(),
		execRequest(domain.NodeTypeCondition, config, map[string]any{"score": 3.0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["result"] != false {
		t.Errorf("score 3 >= 5: expected false, got %v", output["result"])
	}
}

func TestConditionHandler_RoutesOutput(t *testing.T) {
	config := map[string]any{
		"field": "score", "operator": ">=", "value": 5,
		"trueOutput":  map[string]any{"route": "pass"},
		"falseOutput": map[string]any{"route": "reject"},
	}

	h := &ConditionHandler{}
	output, err := h.Execute(context.Background(),
		execRequest(domain.NodeTypeCondition, config, map[string]any{"score": 7.0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["result"] != true {
		t.Errorf("score 7 >= 5: expected true, got %v", output["result"])
	}
	routed := output["output"].(map[string]any)
	if routed["route"] != "pass" {
		t.Errorf("expected trueOutput, got %v", output["output"])
	}

	output, err = h.Execute(context.Background(),
		execRequest(domain.NodeTypeCondition, config, map[string]any{"score": 3.0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	routed = output["output"].(map[string]any)
	if routed["route"] != "reject" {
		t.Errorf("expected falseOutput, got %v", output["output"])
	}
}

func TestConditionHandler_OutputOmittedWhenUnconfigured(t *testing.T) {
	h := &ConditionHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeCondition,
		map[string]any{"expression": "score >= 5"},
		map[string]any{"score": 7.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, exists := output["output"]; exists {
		t.Errorf("output should be absent without trueOutput/falseOutput, got %v", output)
	}
}

func TestConditionHandler_MissingConfig(t *testing.T) {
	h := &ConditionHandler{}
	_, err := h.Execute(context.Background(),
		execRequest(domain.NodeTypeCondition, nil, nil))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

// --- Branch ---

func TestBranchHandler_FirstMatchWins(t *testing.T) {
	h := &BranchHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeBranch,
		map[string]any{
			"branches": []any{
				map[string]any{"name": "high", "expression": "score >= 80"},
				map[string]any{"name": "mid", "expression": "score >= 50"},
			},
			"default": "low",
		},
		map[string]any{"score": 60.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["branch"] != "mid" || output["matched"] != true {
		t.Errorf("expected mid/matched, got %v", output)
	}
}

func TestBranchHandler_Default(t *testing.T) {
	h := &BranchHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeBranch,
		map[string]any{
			"branches": []any{
				map[string]any{"name": "high", "expression": "score >= 80"},
			},
			"default": "low",
		},
		map[string]any{"score": 10.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["branch"] != "low" || output["matched"] != false {
		t.Errorf("expected default low, got %v", output)
	}
}

// --- Loop ---

func TestLoopHandler_Foreach(t *testing.T) {
	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "foreach", "items": "values", "expression": "item * 2"},
		map[string]any{"values": []any{1.0, 2.0, 3.0}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["iterations"] != 3 {
		t.Errorf("expected 3 iterations, got %v", output["iterations"])
	}
	results := output["results"].([]any)
	if results[0] != 2.0 || results[2] != 6.0 {
		t.Errorf("unexpected results: %v", results)
	}
	if output["truncated"] != false {
		t.Error("should not be truncated")
	}
}

func TestLoopHandler_ForeachCeiling(t *testing.T) {
	items := make([]any, defaultMaxLoopIterations+50)
	for i := range items {
		items[i] = float64(i)
	}

	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "foreach", "items": "values"},
		map[string]any{"values": items},
	))
	// Потолок — не ошибка
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["iterations"] != defaultMaxLoopIterations {
		t.Errorf("expected exactly %d iterations, got %v", defaultMaxLoopIterations, output["iterations"])
	}
	if output["truncated"] != true {
		t.Error("expected truncated=true")
	}
}

func TestLoopHandler_While(t *testing.T) {
	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "while", "condition": "index < 4", "expression": "index * 10"},
		map[string]any{},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["iterations"] != 4 {
		t.Errorf("expected 4 iterations, got %v", output["iterations"])
	}
}

func TestLoopHandler_WhileCeiling(t *testing.T) {
	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "while", "condition": "true"},
		map[string]any{},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["truncated"] != true {
		t.Error("infinite while should hit the ceiling")
	}
	if output["iterations"] != defaultMaxLoopIterations {
		t.Errorf("expected %d iterations, got %v", defaultMaxLoopIterations, output["iterations"])
	}
}

func TestLoopHandler_WhileConfiguredCeiling(t *testing.T) {
	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "while", "condition": "true", "max_iterations": 5},
		map[string]any{},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["iterations"] != 5 {
		t.Errorf("never-false while must stop at the configured cap, got %v", output["iterations"])
	}
	if output["truncated"] != true {
		t.Error("expected truncated=true")
	}
}

func TestLoopHandler_ForCount(t *testing.T) {
	h := &LoopHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "for", "count": 5, "expression": "index"},
		map[string]any{},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["iterations"] != 5 {
		t.Errorf("expected 5 iterations, got %v", output["iterations"])
	}
}

func TestLoopHandler_UnknownMode(t *testing.T) {
	h := &LoopHandler{}
	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeLoop,
		map[string]any{"mode": "until"}, nil))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

// --- Template ---

func TestTemplateHandler_BothSyntaxes(t *testing.T) {
	h := &TemplateHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeTemplate,
		map[string]any{"template": "Hi {{user.name}}, env ${env}"},
		map[string]any{
			"user": map[string]any{"name": "bob"},
			"env":  "prod",
		},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["rendered"] != "Hi bob, env prod" {
		t.Errorf("unexpected render: %v", output["rendered"])
	}
}

func TestTemplateHandler_UnresolvedPathEmpty(t *testing.T) {
	h := &TemplateHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeTemplate,
		map[string]any{"template": "[{{missing.path}}]"},
		map[string]any{},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["rendered"] != "[]" {
		t.Errorf("unresolved path should render empty, got %v", output["rendered"])
	}
}

// --- Output ---

func TestOutputHandler_Raw(t *testing.T) {
	input := map[string]any{"a": 1.0}
	h := &OutputHandler{}
	output, err := h.Execute(context.Background(),
		execRequest(domain.NodeTypeOutput, nil, input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["format"] != "raw" {
		t.Errorf("expected raw format, got %v", output["format"])
	}
	content := output["content"].(map[string]any)
	if content["a"] != 1.0 {
		t.Errorf("raw content should be the input, got %v", content)
	}
}

func TestOutputHandler_CSV(t *testing.T) {
	h := &OutputHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeOutput,
		map[string]any{"format": "csv"},
		map[string]any{"rows": []any{
			map[string]any{"id": 1.0, "name": "a"},
			map[string]any{"id": 2.0, "name": "b"},
		}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := output["content"].(string)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), content)
	}
	if lines[0] != "id,name" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "1,a" {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestOutputHandler_Table(t *testing.T) {
	h := &OutputHandler{}
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeOutput,
		map[string]any{"format": "table"},
		map[string]any{"rows": []any{
			map[string]any{"id": 1.0, "name": "alice"},
		}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := output["content"].(string)
	if !strings.Contains(content, "id") || !strings.Contains(content, "alice") {
		t.Errorf("table should contain header and values:\n%s", content)
	}
	if !strings.Contains(content, "--") {
		t.Errorf("table should contain a separator:\n%s", content)
	}
}

func TestOutputHandler_UnknownFormat(t *testing.T) {
	h := &OutputHandler{}
	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeOutput,
		map[string]any{"format": "pdf"}, nil))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

// --- Alert ---

type fakeBroadcaster struct {
	events []string
	err    error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, event string, _ map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestAlertHandler_Broadcasts(t *testing.T) {
	b := &fakeBroadcaster{}
	h := &AlertHandler{broadcaster: b}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeAlert,
		map[string]any{"event": "threshold", "message": "score is {{score}}"},
		map[string]any{"score": 99.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["sent"] != true {
		t.Errorf("expected sent=true, got %v", output)
	}
	if len(b.events) != 1 || b.events[0] != "threshold" {
		t.Errorf("unexpected events: %v", b.events)
	}
}

func TestAlertHandler_GateSkips(t *testing.T) {
	b := &fakeBroadcaster{}
	h := &AlertHandler{broadcaster: b}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeAlert,
		map[string]any{"condition": "score > 100", "message": "never"},
		map[string]any{"score": 50.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["skipped"] != true || output["sent"] != false {
		t.Errorf("gate should skip, got %v", output)
	}
	if len(b.events) != 0 {
		t.Errorf("nothing should be published, got %v", b.events)
	}
}

func TestAlertHandler_PublishFailureNonFatal(t *testing.T) {
	b := &fakeBroadcaster{err: fmt.Errorf("broker down")}
	h := &AlertHandler{broadcaster: b}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeAlert,
		map[string]any{"message": "m"}, map[string]any{}))
	// Сбой публикации не роняет узел
	if err != nil {
		t.Fatalf("publish failure must not fail the node: %v", err)
	}
	if output["sent"] != false {
		t.Errorf("expected sent=false, got %v", output)
	}
}

// --- Query ---

type fakeQueryExecutor struct {
	lastQuery string
	result    *provider.QueryResult
	err       error
}

func (f *fakeQueryExecutor) Query(_ context.Context, query string, _ map[string]any) (*provider.QueryResult, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestQueryHandler_DatasourceSelection(t *testing.T) {
	relational := &fakeQueryExecutor{result: &provider.QueryResult{RowCount: 1}}
	analytics := &fakeQueryExecutor{result: &provider.QueryResult{RowCount: 2}}
	h := &QueryHandler{executors: map[string]provider.QueryExecutor{
		datasourceRelational: relational,
		datasourceAnalytics:  analytics,
	}}

	// Без datasource запрос идёт в реляционный источник
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeQuery,
		map[string]any{"query": "SELECT 1"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relational.lastQuery != "SELECT 1" {
		t.Errorf("default datasource should be relational, executor saw %q", relational.lastQuery)
	}
	if output["datasource"] != datasourceRelational {
		t.Errorf("expected datasource=relational, got %v", output["datasource"])
	}

	output, err = h.Execute(context.Background(), execRequest(domain.NodeTypeQuery,
		map[string]any{"query": "SELECT 2", "datasource": "analytics"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analytics.lastQuery != "SELECT 2" {
		t.Errorf("analytics executor saw %q", analytics.lastQuery)
	}
	if output["rowCount"] != 2 {
		t.Errorf("expected analytics result, got %v", output)
	}
}

func TestQueryHandler_UnknownDatasource(t *testing.T) {
	h := &QueryHandler{executors: map[string]provider.QueryExecutor{
		datasourceRelational: &fakeQueryExecutor{},
	}}

	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeQuery,
		map[string]any{"query": "SELECT 1", "datasource": "warehouse"}, nil))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "relational") {
		t.Errorf("error should list configured datasources, got %v", err)
	}
}

func TestQueryHandler_UpstreamErrorNamesDatasource(t *testing.T) {
	h := &QueryHandler{executors: map[string]provider.QueryExecutor{
		datasourceRelational: &fakeQueryExecutor{err: fmt.Errorf("connection refused")},
	}}

	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeQuery,
		map[string]any{"query": "SELECT 1"}, nil))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), `datasource "relational"`) {
		t.Errorf("error should carry the datasource, got %v", err)
	}
}

// --- Script ---

type fakeScriptRunner struct {
	result *script.Result
	err    error
}

func (f *fakeScriptRunner) Run(_ context.Context, _ *script.Request) (*script.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestScriptHandler_ResultIsTheOutput(t *testing.T) {
	fake := &fakeScriptRunner{result: &script.Result{
		Output:   map[string]any{"result": 42.0},
		Stdout:   "done\n",
		ExitCode: 0,
	}}
	h := &ScriptHandler{runner: fake}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeScript,
		map[string]any{"code": "return {'result': 42}"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["result"] != 42.0 {
		t.Errorf("script result must be the node output, got %v", output)
	}
	if output["_stdout"] != "done\n" {
		t.Errorf("diagnostics should ride reserved keys, got %v", output)
	}
}

func TestScriptHandler_ReservedKeysDoNotDisplaceResult(t *testing.T) {
	fake := &fakeScriptRunner{result: &script.Result{
		Output: map[string]any{"_stdout": "mine"},
		Stdout: "captured",
	}}
	h := &ScriptHandler{runner: fake}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeScript,
		map[string]any{"code": "x"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["_stdout"] != "mine" {
		t.Errorf("script keys win over diagnostics, got %v", output["_stdout"])
	}
}

// --- HTTP ---

type fakeCallExecutor struct {
	lastReq *provider.CallRequest
	result  *provider.CallResult
	err     error
}

func (f *fakeCallExecutor) Call(_ context.Context, req *provider.CallRequest) (*provider.CallResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestHTTPHandler_RendersConfig(t *testing.T) {
	fake := &fakeCallExecutor{result: &provider.CallResult{
		Success:    true,
		StatusCode: 200,
		Body:       map[string]any{"ok": true},
	}}
	h := &HTTPHandler{executor: fake}

	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeHTTP,
		map[string]any{
			"method":  "POST",
			"url":     "https://api.test/users/{{user.id}}",
			"headers": map[string]any{"X-Trace": "{{trace}}"},
			"body":    map[string]any{"score": "{{score}}"},
		},
		map[string]any{
			"user":  map[string]any{"id": "u-7"},
			"trace": "t-1",
			"score": 5.0,
		},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["status_code"] != 200 {
		t.Errorf("expected status 200, got %v", output["status_code"])
	}

	if fake.lastReq.URL != "https://api.test/users/u-7" {
		t.Errorf("url should be rendered, got %q", fake.lastReq.URL)
	}
	if fake.lastReq.Headers["X-Trace"] != "t-1" {
		t.Errorf("headers should be rendered, got %v", fake.lastReq.Headers)
	}
	body := fake.lastReq.Body.(map[string]any)
	if body["score"] != 5.0 {
		t.Errorf("whole-placeholder body value should keep its type, got %T", body["score"])
	}
}

func TestHTTPHandler_UpstreamFailure(t *testing.T) {
	fake := &fakeCallExecutor{result: &provider.CallResult{
		Success:    false,
		StatusCode: 503,
		Error:      "HTTP 503",
	}}
	h := &HTTPHandler{executor: fake}

	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeHTTP,
		map[string]any{"url": "https://api.test"}, map[string]any{}))
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

// --- Workflow ---

type fakeSubworkflowRunner struct {
	output map[string]any
	depth  int
}

func (f *fakeSubworkflowRunner) RunSubworkflow(ctx context.Context, _ uuid.UUID, _ map[string]any, _ *domain.ExecutionSession) (map[string]any, error) {
	f.depth = DepthOf(ctx)
	return f.output, nil
}

func TestWorkflowHandler_RunsChild(t *testing.T) {
	fake := &fakeSubworkflowRunner{output: map[string]any{"done": true}}
	h := &WorkflowHandler{runner: fake}

	childID := uuid.New()
	output, err := h.Execute(context.Background(), execRequest(domain.NodeTypeWorkflow,
		map[string]any{"workflow_id": childID.String()},
		map[string]any{"x": 1.0},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["done"] != true {
		t.Errorf("expected child output, got %v", output)
	}
}

func TestWorkflowHandler_BadWorkflowID(t *testing.T) {
	h := &WorkflowHandler{runner: &fakeSubworkflowRunner{}}
	_, err := h.Execute(context.Background(), execRequest(domain.NodeTypeWorkflow,
		map[string]any{"workflow_id": "not-a-uuid"}, nil))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

// --- Passthrough ---

func TestPassthroughHandler_EchoesInput(t *testing.T) {
	for _, typ := range []domain.NodeType{domain.NodeTypeStart, domain.NodeTypeEnd, domain.NodeTypeMerge} {
		h := &PassthroughHandler{nodeType: typ}
		input := map[string]any{"k": "v"}
		output, err := h.Execute(context.Background(), execRequest(typ, nil, input))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
		if output["k"] != "v" {
			t.Errorf("%s: expected passthrough, got %v", typ, output)
		}
	}
}
