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

// WorkflowRepo — репозиторий для работы с workflows.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// definitionDoc — JSONB-представление узлов и рёбер в колонке definition.
type definitionDoc struct {
	Nodes []domain.NodeSpec `json:"nodes"`
	Edges []domain.Edge     `json:"edges"`
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.WorkflowDefinition) error {
	defJSON, err := json.Marshal(definitionDoc{Nodes: wf.Nodes, Edges: wf.Edges})
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, definition, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		defJSON,
		wf.IsActive,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, definition, is_active, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает workflow по имени.
func (r *WorkflowRepo) GetByName(ctx context.Context, name string) (*domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, definition, is_active, created_at, updated_at
		FROM workflows
		WHERE name = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список всех workflows.
// Definition не загружается: для списка достаточно метаданных.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.WorkflowDefinition, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.WorkflowDefinition
	for rows.Next() {
		var wf domain.WorkflowDefinition
		var description *string
		if err := rows.Scan(
			&wf.ID,
			&wf.Name,
			&description,
			&wf.IsActive,
			&wf.CreatedAt,
			&wf.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		if description != nil {
			wf.Description = *description
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// Update обновляет workflow, включая definition.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.WorkflowDefinition) error {
	defJSON, err := json.Marshal(definitionDoc{Nodes: wf.Nodes, Edges: wf.Edges})
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, definition = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		defJSON,
		wf.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow (каскадно удалит sessions и их записи).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM workflows WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.WorkflowDefinition, error) {
	var wf domain.WorkflowDefinition
	var description *string
	var defJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&description,
		&defJSON,
		&wf.IsActive,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if description != nil {
		wf.Description = *description
	}
	if defJSON != nil {
		var doc definitionDoc
		if err := json.Unmarshal(defJSON, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal definition: %w", err)
		}
		wf.Nodes = doc.Nodes
		wf.Edges = doc.Edges
	}

	return &wf, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
