package dispatch

import (
	"context"

	"github.com/shaiso/Dirigent/internal/domain"
)

// PassthroughHandler — обработчик для узлов start, end и merge.
//
// Все три пропускают вход на выход без изменений:
//   - start отдаёт входные данные сессии первым узлам графа,
//   - merge отдаёт объект, собранный из нескольких предшественников,
//   - end фиксирует терминальный payload сессии (его выход
//     SessionManager забирает как output всей сессии).
type PassthroughHandler struct {
	nodeType domain.NodeType
}

func (h *PassthroughHandler) Type() domain.NodeType {
	return h.nodeType
}

func (h *PassthroughHandler) Execute(_ context.Context, req *Request) (map[string]any, error) {
	if len(req.Input) > 0 {
		return req.Input, nil
	}
	// У start обычно нет предшественников: его выход — входные
	// данные сессии, если явный mapping не задан.
	if h.nodeType == domain.NodeTypeStart && req.Session != nil && req.Session.Input != nil {
		return req.Session.Input, nil
	}
	if req.Input == nil {
		return map[string]any{}, nil
	}
	return req.Input, nil
}
