package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/provider"
)

// Имена источников данных узла query.
const (
	datasourceRelational = "relational"
	datasourceAnalytics  = "analytics"
)

// QueryHandler — обработчик узла query: выполняет параметризованный
// запрос к сконфигурированному источнику данных.
//
// Config:
//   - query (string): SQL с именованными параметрами :name (обязательно)
//   - datasource (string): relational | analytics (default: relational)
//   - params (map): значения параметров; строковые значения
//     рендерятся как шаблоны над входными данными
//
// Output:
//   - rows ([]map): строки результата
//   - rowCount (int)
//   - executionTimeMs (int)
//   - datasource (string): источник, выполнивший запрос
//   - schema (map[string]string): имя колонки → тип
type QueryHandler struct {
	executors map[string]provider.QueryExecutor
}

func (h *QueryHandler) Type() domain.NodeType {
	return domain.NodeTypeQuery
}

func (h *QueryHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()
	query := getString(cfg, "query", "")
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrConfiguration)
	}

	datasource := getString(cfg, "datasource", datasourceRelational)
	executor, err := h.resolve(datasource)
	if err != nil {
		return nil, err
	}

	params := map[string]any{}
	if rawParams := getMap(cfg, "params"); rawParams != nil {
		rendered, err := expr.RenderValue(rawParams, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: params: %v", ErrConfiguration, err)
		}
		params = rendered.(map[string]any)
	}

	result, err := executor.Query(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("%w: query: datasource %q: %v", ErrUpstream, datasource, err)
	}

	rows := make([]any, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = row
	}

	return map[string]any{
		"rows":            rows,
		"rowCount":        result.RowCount,
		"executionTimeMs": result.ExecutionTime.Milliseconds(),
		"datasource":      datasource,
		"schema":          result.Schema,
	}, nil
}

// resolve находит исполнителя по имени источника данных.
func (h *QueryHandler) resolve(datasource string) (provider.QueryExecutor, error) {
	executor, ok := h.executors[datasource]
	if !ok || executor == nil {
		known := make([]string, 0, len(h.executors))
		for name := range h.executors {
			known = append(known, name)
		}
		sort.Strings(known)
		if len(known) == 0 {
			return nil, fmt.Errorf("%w: no query datasources are configured", ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: unknown datasource %q (configured: %s)",
			ErrConfiguration, datasource, strings.Join(known, ", "))
	}
	return executor, nil
}
