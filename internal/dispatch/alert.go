package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/expr"
	"github.com/shaiso/Dirigent/internal/provider"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// AlertHandler — обработчик узла alert: публикует уведомление
// через Broadcaster.
//
// Опциональный gate: если задано condition и оно ложно, публикация
// пропускается. Сбой публикации НЕ роняет узел — уведомления
// best-effort.
//
// Config:
//   - condition (string): выражение-gate (опционально)
//   - event (string): имя события. Default: "alert"
//   - message (string): шаблон сообщения над входными данными
//
// Output:
//   - sent (bool): уведомление опубликовано
//   - skipped (bool): gate не пропустил
type AlertHandler struct {
	broadcaster provider.Broadcaster
}

func (h *AlertHandler) Type() domain.NodeType {
	return domain.NodeTypeAlert
}

func (h *AlertHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	cfg := req.Config()

	if condition := getString(cfg, "condition", ""); condition != "" {
		proceed, err := expr.EvalBool(condition, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: condition: %v", ErrConfiguration, err)
		}
		if !proceed {
			return map[string]any{"sent": false, "skipped": true}, nil
		}
	}

	message, err := expr.Render(getString(cfg, "message", ""), req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: message: %v", ErrConfiguration, err)
	}

	payload := map[string]any{
		"session_id": req.Session.ID.String(),
		"node_id":    req.Node.ID,
		"message":    message,
		"input":      req.Input,
	}

	if h.broadcaster == nil {
		telemetry.FromContext(ctx).Warn("alert broadcaster is not configured, alert dropped",
			"node_id", req.Node.ID)
		return map[string]any{"sent": false, "skipped": false}, nil
	}

	event := getString(cfg, "event", "alert")
	if err := h.broadcaster.Broadcast(ctx, event, payload); err != nil {
		telemetry.FromContext(ctx).Warn("alert publish failed",
			"node_id", req.Node.ID, "error", err)
		return map[string]any{"sent": false, "skipped": false}, nil
	}

	return map[string]any{"sent": true, "skipped": false}, nil
}
