package dispatch

import (
	"errors"
	"fmt"
)

// Ошибки выполнения узлов.
var (
	// ErrConfiguration — невалидная или неполная конфигурация узла.
	ErrConfiguration = errors.New("invalid node configuration")

	// ErrUnsupportedNodeType — тип узла вне поддерживаемого набора.
	ErrUnsupportedNodeType = errors.New("unsupported node type")

	// ErrUpstream — внешний провайдер (HTTP, запрос, completion)
	// вернул ошибку.
	ErrUpstream = errors.New("upstream failure")

	// ErrMaxDepthExceeded — превышена глубина вложенности sub-workflow.
	ErrMaxDepthExceeded = errors.New("max workflow depth exceeded")
)

// NodeError — ошибка выполнения конкретного узла.
type NodeError struct {
	NodeID   string
	NodeType string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
