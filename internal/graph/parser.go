package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/shaiso/Dirigent/internal/domain"
)

// Document — внешний формат определения workflow.
//
// Поддерживаются два способа задания рёбер:
//   - edges[]       — {id, source, target} (текущий формат)
//   - connections[] — {from, to} (легаси-формат)
//
// При нормализации connections переводятся в edges. Рёбра,
// ссылающиеся на отсутствующие узлы, не отбрасываются здесь:
// их обработка — ответственность графа (best-effort сортировка).
type Document struct {
	// Name — имя workflow.
	Name string `json:"name" yaml:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Nodes — узлы графа.
	Nodes []NodeDocument `json:"nodes" yaml:"nodes"`

	// Edges — рёбра в текущем формате.
	Edges []EdgeDocument `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Connections — рёбра в легаси-формате.
	Connections []ConnectionDocument `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// NodeDocument — узел во внешнем документе.
type NodeDocument struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// EdgeDocument — ребро в текущем формате.
type EdgeDocument struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// ConnectionDocument — ребро в легаси-формате.
type ConnectionDocument struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// ParseDefinition парсит определение workflow из JSON или YAML.
//
// Формат определяется по содержимому: документ, начинающийся
// с '{', парсится как JSON, иначе как YAML.
func ParseDefinition(data []byte) (*domain.WorkflowDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var doc Document
	if isJSON(data) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	return Normalize(&doc)
}

// isJSON определяет, является ли документ JSON-объектом.
func isJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Normalize переводит внешний документ в WorkflowDefinition
// и валидирует его структуру.
func Normalize(doc *Document) (*domain.WorkflowDefinition, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, ErrNoNodes
	}

	def := &domain.WorkflowDefinition{
		Name:        doc.Name,
		Description: doc.Description,
		Nodes:       make([]domain.NodeSpec, 0, len(doc.Nodes)),
		Edges:       make([]domain.Edge, 0, len(doc.Edges)+len(doc.Connections)),
	}

	seen := make(map[string]bool, len(doc.Nodes))
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if err := validateNode(n, seen); err != nil {
			return nil, err
		}
		seen[n.ID] = true

		def.Nodes = append(def.Nodes, domain.NodeSpec{
			ID:     n.ID,
			Name:   n.Name,
			Type:   domain.NodeType(n.Type),
			Config: n.Config,
		})
	}

	// Текущий формат рёбер.
	for _, e := range doc.Edges {
		if e.Source == "" || e.Target == "" {
			return nil, NewValidationError(e.ID, "edge",
				"edge has empty source or target", ErrInvalidEdge)
		}
		def.Edges = append(def.Edges, domain.Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
		})
	}

	// Легаси connections → edges.
	for _, c := range doc.Connections {
		if c.From == "" || c.To == "" {
			return nil, NewValidationError("", "connection",
				"connection has empty from or to", ErrInvalidEdge)
		}
		def.Edges = append(def.Edges, domain.Edge{
			Source: c.From,
			Target: c.To,
		})
	}

	return def, nil
}

// validateNode валидирует один узел документа.
func validateNode(n *NodeDocument, seen map[string]bool) error {
	if n.ID == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}
	if seen[n.ID] {
		return NewValidationError(n.ID, "id",
			fmt.Sprintf("duplicate node ID: %s", n.ID), ErrDuplicateNodeID)
	}
	if n.Type == "" {
		return NewValidationError(n.ID, "type",
			"node has empty type", ErrEmptyNodeType)
	}
	return nil
}
