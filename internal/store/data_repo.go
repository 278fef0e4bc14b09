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

// DataRepo — репозиторий для работы с session_data.
//
// Таблица хранит именованные результаты узлов внутри сессии
// (ключ — идентификатор узла или пользовательское имя).
// Повторная запись по тому же ключу перезаписывает значение:
// побеждает последний писатель, без версионирования.
type DataRepo struct {
	pool *pgxpool.Pool
}

// NewDataRepo создаёт новый DataRepo.
func NewDataRepo(pool *pgxpool.Pool) *DataRepo {
	return &DataRepo{pool: pool}
}

// Upsert записывает значение по ключу внутри сессии.
func (r *DataRepo) Upsert(ctx context.Context, entry *domain.SessionDataEntry) error {
	valueJSON, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	query := `
		INSERT INTO session_data (session_id, key, value, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, key) DO UPDATE
		SET value = EXCLUDED.value,
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		entry.SessionID,
		entry.Key,
		valueJSON,
		entry.Status,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session data: %w", err)
	}
	return nil
}

// Get возвращает значение по ключу внутри сессии.
func (r *DataRepo) Get(ctx context.Context, sessionID uuid.UUID, key string) (*domain.SessionDataEntry, error) {
	query := `
		SELECT session_id, key, value, status, updated_at
		FROM session_data
		WHERE session_id = $1 AND key = $2
	`
	var entry domain.SessionDataEntry
	var valueJSON []byte
	err := r.pool.QueryRow(ctx, query, sessionID, key).Scan(
		&entry.SessionID,
		&entry.Key,
		&valueJSON,
		&entry.Status,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session data: %w", err)
	}

	if valueJSON != nil {
		if err := json.Unmarshal(valueJSON, &entry.Value); err != nil {
			return nil, fmt.Errorf("unmarshal value: %w", err)
		}
	}
	return &entry, nil
}

// ListBySessionID возвращает все записи сессии.
func (r *DataRepo) ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]domain.SessionDataEntry, error) {
	query := `
		SELECT session_id, key, value, status, updated_at
		FROM session_data
		WHERE session_id = $1
		ORDER BY updated_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session data: %w", err)
	}
	defer rows.Close()

	var entries []domain.SessionDataEntry
	for rows.Next() {
		var entry domain.SessionDataEntry
		var valueJSON []byte
		if err := rows.Scan(
			&entry.SessionID,
			&entry.Key,
			&valueJSON,
			&entry.Status,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session data: %w", err)
		}
		if valueJSON != nil {
			if err := json.Unmarshal(valueJSON, &entry.Value); err != nil {
				return nil, fmt.Errorf("unmarshal value: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
