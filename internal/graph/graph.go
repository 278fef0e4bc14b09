package graph

import (
	"github.com/shaiso/Dirigent/internal/domain"
)

// Node — узел в графе зависимостей.
type Node struct {
	// Spec — определение узла из WorkflowDefinition.
	Spec *domain.NodeSpec

	// ID — идентификатор узла (копия Spec.ID).
	ID string

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Graph — граф зависимостей узлов workflow.
type Graph struct {
	// Nodes — все узлы графа (nodeID → Node).
	Nodes map[string]*Node

	// Order — итоговый порядок обхода (см. Sort).
	Order []*Node

	// Deferred — ID узлов, не достигших нулевой in-degree:
	// участники циклов и узлы, зависящие от отсутствующих ID.
	// Они добавлены в хвост Order в порядке определения.
	Deferred []string

	// defOrder — порядок определения узлов (для стабильности сортировки).
	defOrder []string
}

// Build строит граф из узлов и рёбер definition.
//
// Рёбра, оба конца которых ссылаются на существующие узлы, образуют
// зависимости. Ребро с отсутствующим target игнорируется. Ребро
// с отсутствующим source, но существующим target, учитывается
// в in-degree target'а: такой узел никогда не достигнет нуля
// и попадёт в Deferred-хвост. Дубликаты рёбер схлопываются.
func Build(nodes []domain.NodeSpec, edges []domain.Edge) *Graph {
	g := &Graph{
		Nodes:    make(map[string]*Node, len(nodes)),
		defOrder: make([]string, 0, len(nodes)),
	}

	for i := range nodes {
		spec := &nodes[i]
		if _, exists := g.Nodes[spec.ID]; exists {
			continue
		}
		g.Nodes[spec.ID] = &Node{
			Spec: spec,
			ID:   spec.ID,
		}
		g.defOrder = append(g.defOrder, spec.ID)
	}

	for _, e := range edges {
		target, ok := g.Nodes[e.Target]
		if !ok {
			continue
		}
		source, ok := g.Nodes[e.Source]
		if !ok {
			// Source вне набора узлов: target получает фантомную
			// зависимость, которая никогда не разрешится.
			if !hasPhantomDep(target, e.Source) {
				target.InDegree++
				target.DependsOn = append(target.DependsOn, &Node{ID: e.Source})
			}
			continue
		}
		addEdge(source, target)
	}

	return g
}

// addEdge добавляет ребро между узлами, пропуская дубликаты.
func addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// hasPhantomDep проверяет, есть ли у узла фантомная зависимость на id.
func hasPhantomDep(n *Node, id string) bool {
	for _, dep := range n.DependsOn {
		if dep.ID == id {
			return true
		}
	}
	return false
}

// Sort выполняет топологическую сортировку (алгоритм Кана).
//
// Гарантия: для каждого ребра (u, v) с обоими концами в наборе узлов,
// не участвующего в цикле, u предшествует v в Order.
//
// Сортировка best-effort: узлы, не достигшие нулевой in-degree
// (участники циклов, узлы с зависимостями на отсутствующие ID),
// не отбрасываются, а добавляются после корректно отсортированного
// префикса в порядке их определения. Их ID перечислены в Deferred —
// вызывающая сторона логирует предупреждение. Каждый узел входит
// в Order ровно один раз.
func (g *Graph) Sort() []*Node {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = node.InDegree
	}

	// Очередь узлов с inDegree = 0, в порядке определения.
	var queue []*Node
	for _, id := range g.defOrder {
		if inDegree[id] == 0 {
			queue = append(queue, g.Nodes[id])
		}
	}

	order := make([]*Node, 0, len(g.Nodes))
	sorted := make(map[string]bool, len(g.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		sorted[node.ID] = true

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Хвост: всё, что не вошло в префикс, в порядке определения.
	g.Deferred = nil
	for _, id := range g.defOrder {
		if !sorted[id] {
			order = append(order, g.Nodes[id])
			g.Deferred = append(g.Deferred, id)
		}
	}

	g.Order = order
	return order
}

// SortIDs возвращает порядок обхода как список ID.
func (g *Graph) SortIDs() []string {
	order := g.Order
	if order == nil {
		order = g.Sort()
	}
	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = n.ID
	}
	return ids
}

// Roots возвращает узлы без входящих рёбер, в порядке определения.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, id := range g.defOrder {
		if g.Nodes[id].InDegree == 0 {
			roots = append(roots, g.Nodes[id])
		}
	}
	return roots
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.Nodes)
}
