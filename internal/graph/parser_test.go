package graph

import (
	"errors"
	"testing"
)

func TestParseDefinition_JSON(t *testing.T) {
	data := []byte(`{
		"name": "orders-report",
		"nodes": [
			{"id": "start", "type": "start"},
			{"id": "fetch", "type": "query", "config": {"query": "SELECT 1"}},
			{"id": "end", "type": "end"}
		],
		"edges": [
			{"id": "e1", "source": "start", "target": "fetch"},
			{"id": "e2", "source": "fetch", "target": "end"}
		]
	}`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.Name != "orders-report" {
		t.Errorf("expected name orders-report, got %s", def.Name)
	}
	if len(def.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(def.Nodes))
	}
	if len(def.Edges) != 2 {
		t.Errorf("expected 2 edges, got %d", len(def.Edges))
	}
	if def.Edges[0].Source != "start" || def.Edges[0].Target != "fetch" {
		t.Errorf("unexpected first edge: %+v", def.Edges[0])
	}
}

func TestParseDefinition_YAML(t *testing.T) {
	data := []byte(`
name: daily-sync
nodes:
  - id: start
    type: start
  - id: notify
    type: alert
    config:
      message: done
edges:
  - source: start
    target: notify
`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.Name != "daily-sync" {
		t.Errorf("expected name daily-sync, got %s", def.Name)
	}
	if len(def.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(def.Nodes))
	}
	if def.Nodes[1].Config["message"] != "done" {
		t.Errorf("node config not parsed: %+v", def.Nodes[1].Config)
	}
}

func TestParseDefinition_LegacyConnections(t *testing.T) {
	data := []byte(`{
		"name": "legacy",
		"nodes": [
			{"id": "a", "type": "start"},
			{"id": "b", "type": "end"}
		],
		"connections": [
			{"from": "a", "to": "b"}
		]
	}`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(def.Edges) != 1 {
		t.Fatalf("expected 1 normalized edge, got %d", len(def.Edges))
	}
	if def.Edges[0].Source != "a" || def.Edges[0].Target != "b" {
		t.Errorf("connection not normalized: %+v", def.Edges[0])
	}
}

func TestParseDefinition_MixedEdgesAndConnections(t *testing.T) {
	data := []byte(`{
		"name": "mixed",
		"nodes": [
			{"id": "a", "type": "start"},
			{"id": "b", "type": "transform"},
			{"id": "c", "type": "end"}
		],
		"edges": [{"source": "a", "target": "b"}],
		"connections": [{"from": "b", "to": "c"}]
	}`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Edges) != 2 {
		t.Errorf("expected 2 edges after normalization, got %d", len(def.Edges))
	}
}

func TestParseDefinition_Empty(t *testing.T) {
	if _, err := ParseDefinition(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := ParseDefinition([]byte("   \n")); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParseDefinition_NoNodes(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"name": "empty", "nodes": []}`))
	if !errors.Is(err, ErrNoNodes) {
		t.Errorf("expected ErrNoNodes, got %v", err)
	}
}

func TestParseDefinition_DuplicateNodeID(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "a", "type": "start"},
			{"id": "a", "type": "end"}
		]
	}`)

	_, err := ParseDefinition(data)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", vErr.Err)
	}
}

func TestParseDefinition_EmptyNodeType(t *testing.T) {
	data := []byte(`{"nodes": [{"id": "a"}]}`)

	_, err := ParseDefinition(data)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrEmptyNodeType) {
		t.Errorf("expected ErrEmptyNodeType, got %v", vErr.Err)
	}
}

func TestParseDefinition_InvalidEdge(t *testing.T) {
	data := []byte(`{
		"nodes": [{"id": "a", "type": "start"}],
		"edges": [{"source": "", "target": "a"}]
	}`)

	_, err := ParseDefinition(data)
	if !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("expected ErrInvalidEdge, got %v", err)
	}
}

func TestParseDefinition_UnknownEdgeEndpointTolerated(t *testing.T) {
	// Ребро на отсутствующий узел не отклоняется на парсинге:
	// граф обработает его best-effort.
	data := []byte(`{
		"nodes": [{"id": "a", "type": "start"}],
		"edges": [{"source": "a", "target": "ghost"}]
	}`)

	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Edges) != 1 {
		t.Errorf("edge should be kept, got %d edges", len(def.Edges))
	}
}
