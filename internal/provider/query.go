package provider

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQueryExecutor — реализация QueryExecutor поверх pgx.
//
// Запросы используют именованные параметры в стиле :name,
// которые подставляются из входных данных узла. Двойное
// двоеточие (::type, кастинг PostgreSQL) параметром не считается.
type PGQueryExecutor struct {
	pool *pgxpool.Pool
}

// NewPGQueryExecutor создаёт PGQueryExecutor.
func NewPGQueryExecutor(pool *pgxpool.Pool) *PGQueryExecutor {
	return &PGQueryExecutor{pool: pool}
}

// Query выполняет запрос и собирает результат в строки-map'ы.
func (e *PGQueryExecutor) Query(ctx context.Context, query string, params map[string]any) (*QueryResult, error) {
	bound, args, err := bindNamed(query, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.pool.Query(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	schema := make(map[string]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
		schema[fd.Name] = typeName(rows, fd.DataTypeOID)
	}

	result := &QueryResult{Schema: schema}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrQuery, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	result.RowCount = len(result.Rows)
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// namedParamPattern находит :name, пропуская ::type.
var namedParamPattern = regexp.MustCompile(`(^|[^:]):([a-zA-Z_][a-zA-Z0-9_]*)`)

// bindNamed переводит запрос с именованными параметрами в позиционную
// форму $1..$n. Повторное использование параметра переиспользует
// ту же позицию. Параметр без значения во входных данных — ошибка.
func bindNamed(query string, params map[string]any) (string, []any, error) {
	positions := make(map[string]int)
	var args []any
	var bindErr error

	bound := namedParamPattern.ReplaceAllStringFunc(query, func(match string) string {
		groups := namedParamPattern.FindStringSubmatch(match)
		prefix, name := groups[1], groups[2]

		pos, ok := positions[name]
		if !ok {
			val, exists := params[name]
			if !exists {
				if bindErr == nil {
					bindErr = fmt.Errorf("%w: missing value for :%s", ErrBindParam, name)
				}
				return match
			}
			args = append(args, val)
			pos = len(args)
			positions[name] = pos
		}
		return fmt.Sprintf("%s$%d", prefix, pos)
	})

	if bindErr != nil {
		return "", nil, bindErr
	}
	return bound, args, nil
}

// typeName возвращает имя типа PostgreSQL по OID.
func typeName(rows pgx.Rows, oid uint32) string {
	if c := rows.Conn(); c != nil {
		if t, ok := c.TypeMap().TypeForOID(oid); ok {
			return t.Name
		}
	}
	return fmt.Sprintf("oid:%d", oid)
}
