package dispatch

import (
	"context"
	"fmt"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/script"
)

// ScriptHandler — обработчик узла script: выполняет пользовательский
// код в подпроцессе (см. пакет script).
//
// Config:
//   - code (string): тело функции (обязательно)
//   - timeout_sec (number): wall-clock таймаут
//   - requirements ([]string): pip-зависимости
//   - memory_limit_mb (number): лимит памяти (best-effort)
//
// Output: JSON-объект, который вернул скрипт. Диагностика запуска
// добавляется под зарезервированными ключами _stdout, _stderr,
// _exit_code и _duration_ms; ключи самого скрипта имеют приоритет.
type ScriptHandler struct {
	runner scriptRunner
}

// scriptRunner — контракт script.Runner со стороны обработчика.
type scriptRunner interface {
	Run(ctx context.Context, req *script.Request) (*script.Result, error)
}

func (h *ScriptHandler) Type() domain.NodeType {
	return domain.NodeTypeScript
}

func (h *ScriptHandler) Execute(ctx context.Context, req *Request) (map[string]any, error) {
	if h.runner == nil {
		return nil, fmt.Errorf("%w: script runner is not configured", ErrConfiguration)
	}

	cfg := req.Config()
	code := getString(cfg, "code", "")
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrConfiguration)
	}

	result, err := h.runner.Run(ctx, &script.Request{
		Code:          code,
		Input:         req.Input,
		Timeout:       getTimeout(cfg, "timeout_sec", 0),
		Requirements:  getStringSlice(cfg, "requirements"),
		MemoryLimitMB: getInt(cfg, "memory_limit_mb", 0),
	})
	if err != nil {
		return nil, err
	}

	output := make(map[string]any, len(result.Output)+4)
	for key, val := range result.Output {
		output[key] = val
	}
	setReserved(output, "_stdout", result.Stdout)
	setReserved(output, "_stderr", result.Stderr)
	setReserved(output, "_exit_code", result.ExitCode)
	setReserved(output, "_duration_ms", result.Duration.Milliseconds())
	return output, nil
}

// setReserved добавляет диагностический ключ, не затирая
// одноимённый ключ из результата скрипта.
func setReserved(output map[string]any, key string, val any) {
	if _, exists := output[key]; !exists {
		output[key] = val
	}
}
