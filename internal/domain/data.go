package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionDataEntry — durable-запись данных сессии.
//
// Это канал, через который output узла становится видимым
// последующим узлам и внешней инспекции независимо от рестартов
// процесса: working set живёт в памяти, SessionDataEntry — в БД.
//
// Ключ записи — пара (SessionID, Key). Запись идемпотентна:
// повторный upsert по тому же ключу перезаписывает значение
// (last-write-wins, без оптимистичных версий).
type SessionDataEntry struct {
	// SessionID — сессия-владелец.
	SessionID uuid.UUID `json:"session_id"`

	// Key — ключ данных. Для output узла — его node ID.
	Key string `json:"key"`

	// Value — значение (JSON-сериализуемое).
	Value map[string]any `json:"value,omitempty"`

	// Status — статус узла, породившего запись: completed / failed.
	Status NodeStatus `json:"status"`

	// UpdatedAt — время последней записи.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionDataEntry создаёт запись для output узла.
func NewSessionDataEntry(sessionID uuid.UUID, key string, value map[string]any, status NodeStatus) *SessionDataEntry {
	return &SessionDataEntry{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		Status:    status,
		UpdatedAt: time.Now(),
	}
}
