package dispatch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
)

// OutputHandler — обработчик узла output: рендерит входные данные
// в артефакт заданного формата. Артефакт попадает в session data
// как обычный выход узла и доступен для инспекции после завершения.
//
// Config:
//   - format (string): raw | text | csv | table. Default: raw
//   - template (string): шаблон для формата text
//   - source (string): dot-путь к списку строк для csv/table.
//     Default: "rows"
//
// Output:
//   - format (string)
//   - content: для raw — входной объект, иначе строка
type OutputHandler struct{}

func (h *OutputHandler) Type() domain.NodeType {
	return domain.NodeTypeOutput
}

func (h *OutputHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()
	format := getString(cfg, "format", "raw")

	switch format {
	case "raw":
		return map[string]any{"format": format, "content": req.Input}, nil

	case "text":
		template := getString(cfg, "template", "")
		if template == "" {
			return nil, fmt.Errorf("%w: template is required for text format", ErrConfiguration)
		}
		content, err := expr.Render(template, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: template: %v", ErrConfiguration, err)
		}
		return map[string]any{"format": format, "content": content}, nil

	case "csv", "table":
		rows, err := h.sourceRows(cfg, req.Input)
		if err != nil {
			return nil, err
		}
		var content string
		if format == "csv" {
			content, err = renderCSV(rows)
		} else {
			content = renderTable(rows)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return map[string]any{"format": format, "content": content}, nil

	default:
		return nil, fmt.Errorf("%w: unknown output format %q", ErrConfiguration, format)
	}
}

// sourceRows достаёт список объектов-строк из входных данных.
func (h *OutputHandler) sourceRows(cfg map[string]any, input map[string]any) ([]map[string]any, error) {
	source := getString(cfg, "source", "rows")
	raw, _ := expr.Lookup(source, input)
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: source %q is not a list", ErrConfiguration, source)
	}

	rows := make([]map[string]any, 0, len(list))
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: source[%d] is not an object", ErrConfiguration, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnOrder собирает отсортированное объединение ключей всех строк.
func columnOrder(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func renderCSV(rows []map[string]any) (string, error) {
	columns := columnOrder(rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func renderTable(rows []map[string]any) string {
	columns := columnOrder(rows)

	widths := make([]int, len(columns))
	cells := make([][]string, len(rows))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for ri, row := range rows {
		cells[ri] = make([]string, len(columns))
		for ci, col := range columns {
			s := cellString(row[col])
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-len(v)))
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	separators := make([]string, len(columns))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	writeRow(separators)
	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}

// cellString приводит значение ячейки к строке.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(data)
	}
}
