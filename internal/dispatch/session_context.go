package dispatch

import (
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/graph"
)

// SessionContext — рабочий набор одной сессии: выходы уже
// выполненных узлов, определение workflow и построенный граф.
//
// Не потокобезопасен: узлы одной сессии выполняются строго
// последовательно.
type SessionContext struct {
	Session    *domain.ExecutionSession
	Definition *domain.WorkflowDefinition
	Graph      *graph.Graph

	outputs map[string]map[string]any
}

// NewSessionContext создаёт контекст сессии.
func NewSessionContext(session *domain.ExecutionSession, def *domain.WorkflowDefinition, g *graph.Graph) *SessionContext {
	return &SessionContext{
		Session:    session,
		Definition: def,
		Graph:      g,
		outputs:    make(map[string]map[string]any),
	}
}

// SetOutput сохраняет выход узла в рабочий набор.
func (c *SessionContext) SetOutput(nodeID string, output map[string]any) {
	c.outputs[nodeID] = output
}

// Output возвращает выход узла из рабочего набора.
func (c *SessionContext) Output(nodeID string) (map[string]any, bool) {
	out, ok := c.outputs[nodeID]
	return out, ok
}

// Predecessors возвращает ID прямых предшественников узла.
// Фантомные зависимости (рёбра с отсутствующим source) не считаются:
// выхода у несуществующего узла не бывает.
func (c *SessionContext) Predecessors(nodeID string) []string {
	node, ok := c.Graph.Nodes[nodeID]
	if !ok {
		return nil
	}
	var preds []string
	for _, dep := range node.DependsOn {
		if dep.Spec != nil {
			preds = append(preds, dep.ID)
		}
	}
	return preds
}
