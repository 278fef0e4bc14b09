package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
)

// Memory — хранилище в памяти.
//
// Реализует те же наборы методов, что и pgx-репозитории, и подходит
// везде, где ожидаются их интерфейсы: в тестах и во встроенном
// режиме без PostgreSQL. Семантика upsert'ов совпадает с БД:
// побеждает последняя запись по ключу.
type Memory struct {
	Workflows *MemoryWorkflows
	Sessions  *MemorySessions
	Records   *MemoryRecords
	Data      *MemoryData
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{
		Workflows: &MemoryWorkflows{items: make(map[uuid.UUID]domain.WorkflowDefinition)},
		Sessions:  &MemorySessions{items: make(map[uuid.UUID]domain.ExecutionSession)},
		Records:   &MemoryRecords{items: make(map[uuid.UUID]map[string]domain.NodeExecutionRecord)},
		Data:      &MemoryData{items: make(map[uuid.UUID]map[string]domain.SessionDataEntry)},
	}
}

// --- Workflows ---

type MemoryWorkflows struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.WorkflowDefinition
}

func (m *MemoryWorkflows) Create(_ context.Context, wf *domain.WorkflowDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[wf.ID]; ok {
		return ErrAlreadyExists
	}
	m.items[wf.ID] = *wf
	return nil
}

func (m *MemoryWorkflows) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &wf, nil
}

func (m *MemoryWorkflows) GetByName(_ context.Context, name string) (*domain.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, wf := range m.items {
		if wf.Name == name {
			return &wf, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryWorkflows) List(_ context.Context) ([]domain.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.WorkflowDefinition, 0, len(m.items))
	for _, wf := range m.items {
		out = append(out, wf)
	}
	return out, nil
}

func (m *MemoryWorkflows) Update(_ context.Context, wf *domain.WorkflowDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[wf.ID]; !ok {
		return ErrNotFound
	}
	m.items[wf.ID] = *wf
	return nil
}

func (m *MemoryWorkflows) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// --- Sessions ---

type MemorySessions struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.ExecutionSession
}

func (m *MemorySessions) Create(_ context.Context, s *domain.ExecutionSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.ID]; ok {
		return ErrAlreadyExists
	}
	m.items[s.ID] = *s
	return nil
}

func (m *MemorySessions) GetByID(_ context.Context, id uuid.UUID) (*domain.ExecutionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemorySessions) GetStatus(_ context.Context, id uuid.UUID) (domain.SessionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return "", ErrNotFound
	}
	return s.Status, nil
}

func (m *MemorySessions) Update(_ context.Context, s *domain.ExecutionSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.ID]; !ok {
		return ErrNotFound
	}
	m.items[s.ID] = *s
	return nil
}

func (m *MemorySessions) MarkCancelled(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status.IsTerminal() {
		return ErrInvalidState
	}
	s.MarkCancelled()
	m.items[id] = s
	return nil
}

func (m *MemorySessions) List(_ context.Context, filter SessionFilter) ([]domain.ExecutionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []domain.ExecutionSession
	for _, s := range m.items {
		if filter.WorkflowID != nil && s.WorkflowID != *filter.WorkflowID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		matched = append(matched, s)
	}
	// Как в SQL-репозитории: новые первыми
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *MemorySessions) ListPending(_ context.Context, limit int) ([]domain.ExecutionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ExecutionSession
	for _, s := range m.items {
		if s.Status == domain.SessionStatusPending {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// --- Node records ---

type MemoryRecords struct {
	mu    sync.RWMutex
	items map[uuid.UUID]map[string]domain.NodeExecutionRecord
}

func (m *MemoryRecords) Upsert(_ context.Context, rec *domain.NodeExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bySession, ok := m.items[rec.SessionID]
	if !ok {
		bySession = make(map[string]domain.NodeExecutionRecord)
		m.items[rec.SessionID] = bySession
	}
	bySession[rec.NodeID] = *rec
	return nil
}

func (m *MemoryRecords) Get(_ context.Context, sessionID uuid.UUID, nodeID string) (*domain.NodeExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.items[sessionID][nodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryRecords) ListBySessionID(_ context.Context, sessionID uuid.UUID) ([]domain.NodeExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.NodeExecutionRecord
	for _, rec := range m.items[sessionID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// --- Session data ---

type MemoryData struct {
	mu    sync.RWMutex
	items map[uuid.UUID]map[string]domain.SessionDataEntry
}

func (m *MemoryData) Upsert(_ context.Context, entry *domain.SessionDataEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bySession, ok := m.items[entry.SessionID]
	if !ok {
		bySession = make(map[string]domain.SessionDataEntry)
		m.items[entry.SessionID] = bySession
	}
	bySession[entry.Key] = *entry
	return nil
}

func (m *MemoryData) Get(_ context.Context, sessionID uuid.UUID, key string) (*domain.SessionDataEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.items[sessionID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (m *MemoryData) ListBySessionID(_ context.Context, sessionID uuid.UUID) ([]domain.SessionDataEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.SessionDataEntry
	for _, entry := range m.items[sessionID] {
		out = append(out, entry)
	}
	return out, nil
}
