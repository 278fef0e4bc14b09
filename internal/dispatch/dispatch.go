package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/provider"
	"github.com/shaiso/Dirigent/internal/script"
)

// Handler — обработчик одного типа узла.
//
// req.Input содержит разрешённые входные данные,
// req.Node.Config — сырую конфигурацию узла.
type Handler interface {
	Type() domain.NodeType
	Execute(ctx context.Context, req *Request) (map[string]any, error)
}

// Request — запрос на выполнение узла.
type Request struct {
	Session *domain.ExecutionSession
	Node    *domain.NodeSpec
	Input   map[string]any
}

// Config возвращает конфигурацию узла (никогда не nil).
func (r *Request) Config() map[string]any {
	if r.Node == nil || r.Node.Config == nil {
		return map[string]any{}
	}
	return r.Node.Config
}

// SubworkflowRunner запускает вложенный workflow как дочернюю сессию.
// Реализуется session.Manager; интерфейс живёт здесь, чтобы не
// замыкать цикл импортов dispatch → session.
type SubworkflowRunner interface {
	RunSubworkflow(ctx context.Context, workflowID uuid.UUID, input map[string]any, parent *domain.ExecutionSession) (map[string]any, error)
}

// Collaborators — внешние исполнители, нужные обработчикам.
// Любое поле может быть nil: соответствующий тип узла тогда
// отвечает ошибкой конфигурации при попытке выполнения.
type Collaborators struct {
	Scripts *script.Runner
	Calls   provider.CallExecutor

	// Queries — основной (реляционный) источник данных узла query.
	// Analytics — опциональный аналитический источник; узел выбирает
	// его конфигом datasource: "analytics".
	Queries   provider.QueryExecutor
	Analytics provider.QueryExecutor

	Prompts      provider.PromptExecutor
	Completions  provider.CompletionProvider
	Broadcaster  provider.Broadcaster
	Subworkflows SubworkflowRunner
}

// queryExecutors собирает именованные источники данных для узла query.
func (c Collaborators) queryExecutors() map[string]provider.QueryExecutor {
	executors := make(map[string]provider.QueryExecutor, 2)
	if c.Queries != nil {
		executors[datasourceRelational] = c.Queries
	}
	if c.Analytics != nil {
		executors[datasourceAnalytics] = c.Analytics
	}
	return executors
}

// Registry — реестр обработчиков по типу узла.
type Registry struct {
	handlers map[domain.NodeType]Handler
}

// NewRegistry создаёт реестр с полным набором обработчиков.
func NewRegistry(c Collaborators) *Registry {
	r := &Registry{handlers: make(map[domain.NodeType]Handler)}

	r.Register(&PassthroughHandler{nodeType: domain.NodeTypeStart})
	r.Register(&PassthroughHandler{nodeType: domain.NodeTypeEnd})
	r.Register(&PassthroughHandler{nodeType: domain.NodeTypeMerge})
	r.Register(&ConditionHandler{})
	r.Register(&BranchHandler{})
	r.Register(&LoopHandler{})
	r.Register(&TransformHandler{})
	r.Register(&TemplateHandler{})
	r.Register(&WorkflowHandler{runner: c.Subworkflows})
	sh := &ScriptHandler{}
	if c.Scripts != nil {
		// Не кладём типизированный nil в интерфейсное поле
		sh.runner = c.Scripts
	}
	r.Register(sh)
	r.Register(&QueryHandler{executors: c.queryExecutors()})
	r.Register(&AlertHandler{broadcaster: c.Broadcaster})
	r.Register(&OutputHandler{})
	r.Register(&PromptHandler{executor: c.Prompts})
	r.Register(&HTTPHandler{executor: c.Calls})
	r.Register(&CompletionHandler{prov: c.Completions})

	return r
}

// Register добавляет обработчик для его типа узла.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Type()] = h
}

// Get возвращает обработчик для типа узла.
// Неизвестный тип — ошибка с перечислением поддерживаемых типов.
func (r *Registry) Get(nodeType domain.NodeType) (Handler, error) {
	h, ok := r.handlers[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedNodeType, nodeType, strings.Join(r.SupportedTypes(), ", "))
	}
	return h, nil
}

// SupportedTypes возвращает отсортированный список типов узлов.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}
