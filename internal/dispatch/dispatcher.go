package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/script"
	"github.com/shaiso/Dirigent/internal/store"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// nodeRefPrefix — префикс reference-токена на выход другого узла.
const nodeRefPrefix = "$node."

// RecordStore — запись выполнения узлов.
type RecordStore interface {
	Upsert(ctx context.Context, rec *domain.NodeExecutionRecord) error
}

// DataStore — именованные результаты узлов внутри сессии.
type DataStore interface {
	Upsert(ctx context.Context, entry *domain.SessionDataEntry) error
	Get(ctx context.Context, sessionID uuid.UUID, key string) (*domain.SessionDataEntry, error)
}

// Dispatcher выполняет узлы: разрешение входа, вызов обработчика,
// бухгалтерия записей и результатов.
type Dispatcher struct {
	registry *Registry
	records  RecordStore
	data     DataStore
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(registry *Registry, records RecordStore, data DataStore) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		records:  records,
		data:     data,
	}
}

// Dispatch выполняет один узел в контексте сессии.
//
// Независимо от исхода узел получает терминальную запись выполнения
// и запись результата в session data — до того, как ошибка уйдёт
// наверх. Сбои самой бухгалтерии логируются и узел не роняют.
func (d *Dispatcher) Dispatch(ctx context.Context, sc *SessionContext, node *domain.NodeSpec) (map[string]any, error) {
	logger := telemetry.WithNodeID(telemetry.FromContext(ctx), node.ID)

	input, err := d.resolveInput(ctx, sc, node)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, NodeType: string(node.Type), Err: err}
	}

	rec := domain.NewNodeExecutionRecord(sc.Session.ID, node, input)
	if err := d.records.Upsert(ctx, rec); err != nil {
		logger.Error("persist node record failed", "error", err)
	}

	handler, err := d.registry.Get(node.Type)
	if err != nil {
		d.finishFailed(ctx, logger, rec, err)
		return nil, &NodeError{NodeID: node.ID, NodeType: string(node.Type), Err: err}
	}

	start := time.Now()
	output, execErr := handler.Execute(ctx, &Request{
		Session: sc.Session,
		Node:    node,
		Input:   input,
	})
	duration := time.Since(start)

	telemetry.NodeDuration.WithLabelValues(string(node.Type)).Observe(duration.Seconds())

	if execErr != nil {
		telemetry.NodeExecutionsTotal.WithLabelValues(string(node.Type), "failed").Inc()
		if errors.Is(execErr, script.ErrScriptTimeout) {
			telemetry.ScriptTimeoutsTotal.Inc()
		}
		d.finishFailed(ctx, logger, rec, execErr)
		return nil, &NodeError{NodeID: node.ID, NodeType: string(node.Type), Err: execErr}
	}

	telemetry.NodeExecutionsTotal.WithLabelValues(string(node.Type), "completed").Inc()

	rec.MarkCompleted(output)
	if err := d.records.Upsert(ctx, rec); err != nil {
		logger.Error("persist node record failed", "error", err)
	}

	entry := domain.NewSessionDataEntry(sc.Session.ID, node.ID, output, domain.NodeStatusCompleted)
	if err := d.data.Upsert(ctx, entry); err != nil {
		logger.Error("persist node output failed", "error", err)
	}

	sc.SetOutput(node.ID, output)

	logger.Debug("node completed", "type", node.Type, "duration_ms", duration.Milliseconds())
	return output, nil
}

// finishFailed доводит запись узла до терминального failed-состояния
// и сохраняет ошибку в session data.
func (d *Dispatcher) finishFailed(ctx context.Context, logger *slog.Logger, rec *domain.NodeExecutionRecord, execErr error) {
	rec.MarkFailed(execErr.Error())
	if err := d.records.Upsert(ctx, rec); err != nil {
		logger.Error("persist node record failed", "error", err)
	}

	entry := domain.NewSessionDataEntry(rec.SessionID, rec.NodeID,
		map[string]any{"error": execErr.Error()}, domain.NodeStatusFailed)
	if err := d.data.Upsert(ctx, entry); err != nil {
		logger.Error("persist node error failed", "error", err)
	}
}

// --- Input resolution ---

// resolveInput собирает входные данные узла.
//
// Если конфигурация содержит явный mapping "input", каждое значение
// разрешается: reference-токены $node.<id>[.<path>] — в выходы
// других узлов, всё остальное — литералы. Без mapping'а вход
// собирается автоматически из прямых предшественников: 0 — пустой
// объект, 1 — весь его выход, N — объект, ключованный их id.
func (d *Dispatcher) resolveInput(ctx context.Context, sc *SessionContext, node *domain.NodeSpec) (map[string]any, error) {
	if node.Config != nil {
		if mapping, ok := node.Config["input"].(map[string]any); ok {
			out := make(map[string]any, len(mapping))
			for key, raw := range mapping {
				val, err := d.resolveValue(ctx, sc, raw)
				if err != nil {
					return nil, err
				}
				out[key] = val
			}
			return out, nil
		}
	}

	preds := sc.Predecessors(node.ID)
	switch len(preds) {
	case 0:
		return map[string]any{}, nil
	case 1:
		out, ok := d.nodeOutput(ctx, sc, preds[0])
		if !ok {
			return map[string]any{}, nil
		}
		return out, nil
	default:
		gathered := make(map[string]any, len(preds))
		for _, pred := range preds {
			if out, ok := d.nodeOutput(ctx, sc, pred); ok {
				gathered[pred] = out
			}
		}
		return gathered, nil
	}
}

// resolveValue разрешает одно значение mapping'а, рекурсивно
// спускаясь в map'ы и списки.
func (d *Dispatcher) resolveValue(ctx context.Context, sc *SessionContext, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if !strings.HasPrefix(v, nodeRefPrefix) {
			return v, nil
		}
		ref := strings.TrimPrefix(v, nodeRefPrefix)
		nodeID, path, _ := strings.Cut(ref, ".")
		output, ok := d.nodeOutput(ctx, sc, nodeID)
		if !ok {
			return nil, nil
		}
		if path == "" {
			return output, nil
		}
		val, _ := expr.Lookup(path, output)
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			resolved, err := d.resolveValue(ctx, sc, item)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := d.resolveValue(ctx, sc, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return raw, nil
	}
}

// nodeOutput возвращает выход узла: сперва рабочий набор,
// затем хранилище (с кэшированием обратно в рабочий набор).
func (d *Dispatcher) nodeOutput(ctx context.Context, sc *SessionContext, nodeID string) (map[string]any, bool) {
	if out, ok := sc.Output(nodeID); ok {
		return out, true
	}

	entry, err := d.data.Get(ctx, sc.Session.ID, nodeID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			telemetry.FromContext(ctx).Warn("load node output failed",
				"node_id", nodeID, "error", err)
		}
		return nil, false
	}

	sc.SetOutput(nodeID, entry.Value)
	return entry.Value, true
}
