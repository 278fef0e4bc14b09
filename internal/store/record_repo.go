package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Dirigent/internal/domain"
)

// RecordRepo — репозиторий для работы с node_records.
type RecordRepo struct {
	pool *pgxpool.Pool
}

// NewRecordRepo создаёт новый RecordRepo.
func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// Upsert записывает состояние выполнения узла.
// Ключ — (session_id, node_id); повторная запись перезаписывает
// предыдущую: жизненный цикл узла running → completed/failed
// проходит через один и тот же ключ.
func (r *RecordRepo) Upsert(ctx context.Context, rec *domain.NodeExecutionRecord) error {
	inputJSON, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := json.Marshal(rec.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		INSERT INTO node_records (session_id, node_id, node_name, node_type, status,
		                          input, output, error, started_at, finished_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id, node_id) DO UPDATE
		SET status = EXCLUDED.status,
		    input = EXCLUDED.input,
		    output = EXCLUDED.output,
		    error = EXCLUDED.error,
		    finished_at = EXCLUDED.finished_at,
		    duration_ms = EXCLUDED.duration_ms
	`
	_, err = r.pool.Exec(ctx, query,
		rec.SessionID,
		rec.NodeID,
		rec.NodeName,
		rec.NodeType,
		rec.Status,
		inputJSON,
		outputJSON,
		nullString(rec.Error),
		rec.StartedAt,
		rec.FinishedAt,
		rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("upsert node record: %w", err)
	}
	return nil
}

// Get возвращает запись выполнения узла.
func (r *RecordRepo) Get(ctx context.Context, sessionID uuid.UUID, nodeID string) (*domain.NodeExecutionRecord, error) {
	query := `
		SELECT session_id, node_id, node_name, node_type, status,
		       input, output, error, started_at, finished_at, duration_ms
		FROM node_records
		WHERE session_id = $1 AND node_id = $2
	`
	return r.scanRecord(r.pool.QueryRow(ctx, query, sessionID, nodeID))
}

// ListBySessionID возвращает все записи сессии в порядке запуска узлов.
func (r *RecordRepo) ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]domain.NodeExecutionRecord, error) {
	query := `
		SELECT session_id, node_id, node_name, node_type, status,
		       input, output, error, started_at, finished_at, duration_ms
		FROM node_records
		WHERE session_id = $1
		ORDER BY started_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list node records: %w", err)
	}
	defer rows.Close()

	var records []domain.NodeExecutionRecord
	for rows.Next() {
		rec, err := r.scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// --- Helpers ---

func (r *RecordRepo) scanRecord(row pgx.Row) (*domain.NodeExecutionRecord, error) {
	var rec domain.NodeExecutionRecord
	var inputJSON, outputJSON []byte
	var recError *string

	err := row.Scan(
		&rec.SessionID,
		&rec.NodeID,
		&rec.NodeName,
		&rec.NodeType,
		&rec.Status,
		&inputJSON,
		&outputJSON,
		&recError,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.DurationMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node record: %w", err)
	}

	if err := unmarshalRecordJSON(&rec, inputJSON, outputJSON); err != nil {
		return nil, err
	}
	if recError != nil {
		rec.Error = *recError
	}
	return &rec, nil
}

func (r *RecordRepo) scanRecordFromRows(rows pgx.Rows) (*domain.NodeExecutionRecord, error) {
	var rec domain.NodeExecutionRecord
	var inputJSON, outputJSON []byte
	var recError *string

	err := rows.Scan(
		&rec.SessionID,
		&rec.NodeID,
		&rec.NodeName,
		&rec.NodeType,
		&rec.Status,
		&inputJSON,
		&outputJSON,
		&recError,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.DurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("scan node record: %w", err)
	}

	if err := unmarshalRecordJSON(&rec, inputJSON, outputJSON); err != nil {
		return nil, err
	}
	if recError != nil {
		rec.Error = *recError
	}
	return &rec, nil
}

func unmarshalRecordJSON(rec *domain.NodeExecutionRecord, inputJSON, outputJSON []byte) error {
	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &rec.Input); err != nil {
			return fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &rec.Output); err != nil {
			return fmt.Errorf("unmarshal output: %w", err)
		}
	}
	return nil
}
