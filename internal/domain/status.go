package domain

// SessionStatus — статус выполнения сессии.
//
// Жизненный цикл:
//
//	pending → running → completed
//	                  ↘ failed
//	          (или) → cancelled (из pending или running)
//
// Все три правых статуса терминальны — исходящих переходов нет.
type SessionStatus string

const (
	// SessionStatusPending — сессия создана, но ещё не начала выполняться.
	SessionStatusPending SessionStatus = "pending"

	// SessionStatusRunning — сессия в процессе выполнения.
	SessionStatusRunning SessionStatus = "running"

	// SessionStatusCompleted — все узлы завершены успешно.
	SessionStatusCompleted SessionStatus = "completed"

	// SessionStatusFailed — выполнение остановлено первой ошибкой узла
	// (fail-fast, без продолжения за упавший узел).
	SessionStatusFailed SessionStatus = "failed"

	// SessionStatusCancelled — сессия отменена пользователем.
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный (сессия завершена).
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// NodeStatus — статус выполнения одного узла.
//
// Жизненный цикл:
//
//	pending → running → completed
//	                  ↘ failed
type NodeStatus string

const (
	// NodeStatusPending — узел ожидает выполнения.
	NodeStatusPending NodeStatus = "pending"

	// NodeStatusRunning — узел выполняется диспетчером.
	NodeStatusRunning NodeStatus = "running"

	// NodeStatusCompleted — узел успешно завершён.
	NodeStatusCompleted NodeStatus = "completed"

	// NodeStatusFailed — узел завершился с ошибкой.
	NodeStatusFailed NodeStatus = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed:
		return true
	default:
		return false
	}
}
