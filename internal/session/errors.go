package session

import "errors"

// Ошибки управления сессиями.
var (
	// ErrAlreadyFinished — сессия уже в терминальном статусе.
	ErrAlreadyFinished = errors.New("session already finished")

	// ErrWorkflowInactive — workflow деактивирован, сессии не создаются.
	ErrWorkflowInactive = errors.New("workflow is inactive")
)
