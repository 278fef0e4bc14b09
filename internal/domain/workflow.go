package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowDefinition — определение рабочего процесса.
//
// Definition — это "программа" для Dirigent: набор узлов (nodes)
// и направленных рёбер (edges) между ними. Definition неизменяем
// в рамках одного выполнения: сессия загружает его один раз
// и не мутирует.
type WorkflowDefinition struct {
	// ID — уникальный идентификатор definition.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя workflow (например, "sync-orders", "daily-report").
	Name string `json:"name"`

	// Description — описание назначения workflow.
	Description string `json:"description,omitempty"`

	// Nodes — узлы графа.
	Nodes []NodeSpec `json:"nodes"`

	// Edges — направленные рёбра: target потребляет output source
	// как зависимость.
	Edges []Edge `json:"edges"`

	// IsActive — флаг активности. Неактивные workflows нельзя запускать.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Node возвращает узел по ID. Второе значение — false, если узел не найден.
func (w *WorkflowDefinition) Node(id string) (*NodeSpec, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// Predecessors возвращает ID узлов с ребром в узел nodeID,
// в порядке определения рёбер.
func (w *WorkflowDefinition) Predecessors(nodeID string) []string {
	var preds []string
	for _, e := range w.Edges {
		if e.Target == nodeID {
			preds = append(preds, e.Source)
		}
	}
	return preds
}

// NodeSpec — определение одного узла в workflow.
type NodeSpec struct {
	// ID — уникальный идентификатор узла в рамках workflow.
	// Используется в рёбрах и в input-ссылках ($node.<id>).
	ID string `json:"id"`

	// Name — человекочитаемое имя узла.
	Name string `json:"name,omitempty"`

	// Type — тип узла из закрытого перечисления (см. NodeType).
	Type NodeType `json:"type"`

	// Config — конфигурация узла. Семантика ключей зависит от типа;
	// нераспознанные ключи игнорируются.
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро графа: Target потребляет output Source.
type Edge struct {
	// ID — идентификатор ребра (опционален, нужен только для внешних документов).
	ID string `json:"id,omitempty"`

	// Source — ID узла-источника.
	Source string `json:"source"`

	// Target — ID узла-потребителя.
	Target string `json:"target"`
}

// NodeType — тип узла. Набор типов закрыт: диспетчеризация идёт
// через явный реестр обработчиков, плагины не поддерживаются.
type NodeType string

// Типы узлов.
const (
	// NodeTypeStart — точка входа, pass-through.
	NodeTypeStart NodeType = "start"

	// NodeTypeEnd — точка выхода, pass-through; дополнительно
	// фиксирует терминальный payload сессии.
	NodeTypeEnd NodeType = "end"

	// NodeTypeMerge — объединение веток, pass-through.
	NodeTypeMerge NodeType = "merge"

	// NodeTypeCondition — структурное сравнение или булево выражение.
	NodeTypeCondition NodeType = "condition"

	// NodeTypeBranch — упорядоченный список условий, first match wins.
	NodeTypeBranch NodeType = "branch"

	// NodeTypeLoop — ограниченный цикл: foreach / while / for.
	NodeTypeLoop NodeType = "loop"

	// NodeTypeTransform — чистая трансформация данных через выражения.
	NodeTypeTransform NodeType = "transform"

	// NodeTypeTemplate — подстановка плейсхолдеров в текстовый шаблон.
	NodeTypeTemplate NodeType = "template"

	// NodeTypeWorkflow — запуск под-workflow в новой сессии.
	NodeTypeWorkflow NodeType = "workflow"

	// NodeTypeScript — выполнение скрипта во внешнем интерпретаторе.
	NodeTypeScript NodeType = "script"

	// NodeTypeQuery — выполнение запроса к источнику данных.
	NodeTypeQuery NodeType = "query"

	// NodeTypeAlert — публикация алерта в real-time канал.
	NodeTypeAlert NodeType = "alert"

	// NodeTypeOutput — рендеринг результата в презентационный формат.
	NodeTypeOutput NodeType = "output"

	// NodeTypePrompt — вызов prompt-исполнителя (внешний коллаборатор).
	NodeTypePrompt NodeType = "prompt"

	// NodeTypeHTTP — исходящий вызов через call-исполнителя.
	NodeTypeHTTP NodeType = "http"

	// NodeTypeCompletion — вызов AI completion провайдера.
	NodeTypeCompletion NodeType = "completion"
)

// String возвращает строковое представление типа.
func (t NodeType) String() string {
	return string(t)
}
