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

// SessionRepo — репозиторий для работы с sessions.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo создаёт новый SessionRepo.
func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create создаёт новую сессию.
func (r *SessionRepo) Create(ctx context.Context, s *domain.ExecutionSession) error {
	inputJSON, err := json.Marshal(s.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	query := `
		INSERT INTO sessions (id, workflow_id, status, input, depth, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.WorkflowID,
		s.Status,
		inputJSON,
		s.Depth,
		nullUUID(s.ParentID),
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID возвращает сессию по ID.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExecutionSession, error) {
	query := `
		SELECT id, workflow_id, status, input, output, error, depth, parent_id,
		       created_at, started_at, completed_at
		FROM sessions
		WHERE id = $1
	`
	return r.scanSession(r.pool.QueryRow(ctx, query, id))
}

// GetStatus возвращает только статус сессии.
// Движок опрашивает статус между узлами для кооперативной отмены,
// тянуть всю строку для этого не нужно.
func (r *SessionRepo) GetStatus(ctx context.Context, id uuid.UUID) (domain.SessionStatus, error) {
	var status domain.SessionStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session status: %w", err)
	}
	return status, nil
}

// List возвращает список сессий с фильтрацией.
func (r *SessionRepo) List(ctx context.Context, filter SessionFilter) ([]domain.ExecutionSession, error) {
	query := `
		SELECT id, workflow_id, status, input, output, error, depth, parent_id,
		       created_at, started_at, completed_at
		FROM sessions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ExecutionSession
	for rows.Next() {
		s, err := r.scanSessionFromRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Update обновляет статус и результат сессии.
func (r *SessionRepo) Update(ctx context.Context, s *domain.ExecutionSession) error {
	outputJSON, err := json.Marshal(s.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		UPDATE sessions
		SET status = $2, output = $3, error = $4, started_at = $5, completed_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Status,
		outputJSON,
		nullString(s.Error),
		s.StartedAt,
		s.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCancelled переводит сессию в статус cancelled.
// Срабатывает только для незавершённых сессий: терминальный
// статус не перезаписывается.
func (r *SessionRepo) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET status = 'cancelled', completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'running')
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark session cancelled: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetStatus(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidState
	}
	return nil
}

// ListPending возвращает сессии в статусе pending.
func (r *SessionRepo) ListPending(ctx context.Context, limit int) ([]domain.ExecutionSession, error) {
	query := `
		SELECT id, workflow_id, status, input, output, error, depth, parent_id,
		       created_at, started_at, completed_at
		FROM sessions
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ExecutionSession
	for rows.Next() {
		s, err := r.scanSessionFromRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// --- Helpers ---

// SessionFilter — параметры фильтрации сессий.
type SessionFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.SessionStatus
	Limit      int
	Offset     int
}

func (r *SessionRepo) scanSession(row pgx.Row) (*domain.ExecutionSession, error) {
	var s domain.ExecutionSession
	var inputJSON, outputJSON []byte
	var sessionError *string

	err := row.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.Status,
		&inputJSON,
		&outputJSON,
		&sessionError,
		&s.Depth,
		&s.ParentID,
		&s.CreatedAt,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := unmarshalSessionJSON(&s, inputJSON, outputJSON); err != nil {
		return nil, err
	}
	if sessionError != nil {
		s.Error = *sessionError
	}
	return &s, nil
}

func (r *SessionRepo) scanSessionFromRows(rows pgx.Rows) (*domain.ExecutionSession, error) {
	var s domain.ExecutionSession
	var inputJSON, outputJSON []byte
	var sessionError *string

	err := rows.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.Status,
		&inputJSON,
		&outputJSON,
		&sessionError,
		&s.Depth,
		&s.ParentID,
		&s.CreatedAt,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if err := unmarshalSessionJSON(&s, inputJSON, outputJSON); err != nil {
		return nil, err
	}
	if sessionError != nil {
		s.Error = *sessionError
	}
	return &s, nil
}

func unmarshalSessionJSON(s *domain.ExecutionSession, inputJSON, outputJSON []byte) error {
	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &s.Input); err != nil {
			return fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &s.Output); err != nil {
			return fmt.Errorf("unmarshal output: %w", err)
		}
	}
	return nil
}
