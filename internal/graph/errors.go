package graph

import "errors"

// Ошибки парсинга и нормализации определения workflow.
var (
	// ErrEmptyDocument — пустой документ.
	ErrEmptyDocument = errors.New("workflow document is empty")

	// ErrParse — документ не распарсился как JSON или YAML.
	ErrParse = errors.New("workflow document parse failed")

	// ErrNoNodes — definition не содержит узлов.
	ErrNoNodes = errors.New("workflow definition has no nodes")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrEmptyNodeType — узел без типа.
	ErrEmptyNodeType = errors.New("node has empty type")

	// ErrInvalidEdge — ребро с пустым концом.
	ErrInvalidEdge = errors.New("invalid edge")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
