package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Default configuration values.
const (
	defaultTimeout    = 60 * time.Second
	defaultPipTimeout = 120 * time.Second
	maxTimeout        = 10 * time.Minute
)

// Request — запрос на выполнение скрипта.
type Request struct {
	// Code — тело пользовательской функции (Python).
	// Оборачивается driver-скриптом, вход доступен как аргумент input.
	Code string

	// Input — входные данные, сериализуются в input.json.
	Input map[string]any

	// Timeout — жёсткий wall-clock таймаут. Default: 60s, max: 10m.
	Timeout time.Duration

	// Requirements — pip-зависимости, ставятся в каталог запуска
	// через pip install --target.
	Requirements []string

	// MemoryLimitMB — ограничение памяти (best-effort, через
	// resource.setrlimit внутри driver). 0 — без ограничения.
	MemoryLimitMB int
}

// Result — результат выполнения скрипта.
type Result struct {
	// Output — распарсенный JSON-результат (последняя JSON-строка stdout).
	Output map[string]any

	// Stdout — полный stdout процесса.
	Stdout string

	// Stderr — stderr процесса.
	Stderr string

	// ExitCode — код выхода.
	ExitCode int

	// Duration — длительность выполнения.
	Duration time.Duration
}

// Runner запускает пользовательские скрипты в подпроцессах.
type Runner struct {
	python string
	logger *slog.Logger
}

// NewRunner создаёт Runner.
// Интерпретатор берётся из PYTHON_BIN, по умолчанию python3.
func NewRunner(logger *slog.Logger) *Runner {
	python := os.Getenv("PYTHON_BIN")
	if python == "" {
		python = "python3"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{python: python, logger: logger}
}

// Run выполняет скрипт и возвращает результат.
//
// Таймаут покрывает только сам скрипт; установка зависимостей
// идёт с собственным таймаутом до него.
func (r *Runner) Run(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrSetup)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	dir, err := os.MkdirTemp("", "dirigent-script-")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrSetup, err)
	}
	defer os.RemoveAll(dir)

	inputJSON, err := json.Marshal(req.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal input: %v", ErrSetup, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "input.json"), inputJSON, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write input: %v", ErrSetup, err)
	}

	driver := buildDriver(req.Code, req.MemoryLimitMB)
	if err := os.WriteFile(filepath.Join(dir, "script.py"), []byte(driver), 0o600); err != nil {
		return nil, fmt.Errorf("%w: write script: %v", ErrSetup, err)
	}

	env := os.Environ()
	if len(req.Requirements) > 0 {
		if err := r.installRequirements(ctx, dir, req.Requirements); err != nil {
			return nil, err
		}
		env = append(env, "PYTHONPATH="+filepath.Join(dir, "deps"))
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, r.python, "script.py")
	c.Dir = dir
	c.Env = env

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// Процесс запускается в собственной группе, чтобы по таймауту
	// убить всё дерево, а не только интерпретатор.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
	c.WaitDelay = 5 * time.Second

	start := time.Now()
	runErr := c.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	if runErr != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			r.logger.Warn("script killed by timeout",
				"timeout", timeout,
				"duration", duration,
			)
			return result, fmt.Errorf("%w: exceeded %s", ErrScriptTimeout, timeout)
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("%w: cancelled: %v", ErrScript, ctx.Err())
		}
		return result, fmt.Errorf("%w: exit code %d: %s",
			ErrScript, result.ExitCode, truncate(result.Stderr, 500))
	}

	output, err := parseResult(result.Stdout)
	if err != nil {
		return result, err
	}
	result.Output = output
	return result, nil
}

// installRequirements ставит pip-зависимости в <dir>/deps.
func (r *Runner) installRequirements(ctx context.Context, dir string, requirements []string) error {
	pipCtx, cancel := context.WithTimeout(ctx, defaultPipTimeout)
	defer cancel()

	args := append([]string{"-m", "pip", "install", "--quiet", "--target", filepath.Join(dir, "deps")}, requirements...)
	c := exec.CommandContext(pipCtx, r.python, args...)
	c.Dir = dir

	var stderr bytes.Buffer
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%w: pip install: %s", ErrSetup, truncate(stderr.String(), 500))
	}
	return nil
}

// parseResult ищет последнюю строку stdout, содержащую JSON-объект.
// Пользовательские print'ы выше по выводу результатом не считаются.
func parseResult(stdout string) (map[string]any, error) {
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var output map[string]any
		if err := json.Unmarshal([]byte(line), &output); err == nil {
			return output, nil
		}
	}
	return nil, fmt.Errorf("%w: no JSON object in stdout", ErrInvalidResult)
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
