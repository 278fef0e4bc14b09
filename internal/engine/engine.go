package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/session"
)

// Default configuration values.
const (
	defaultPollInterval   = 10 * time.Second
	defaultBatchSize      = 100
	defaultMaxConcurrency = 10
)

// SessionSource — источник pending-сессий для polling fallback.
type SessionSource interface {
	ListPending(ctx context.Context, limit int) ([]domain.ExecutionSession, error)
}

// Runner выполняет одну сессию до терминального статуса.
type Runner interface {
	Run(ctx context.Context, sessionID uuid.UUID) error
}

// Engine выполняет сессии workflow.
//
// Engine:
//   - Получает новые сессии из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending-сессии в БД (polling fallback)
//   - Выполняет каждую сессию через session.Manager
//
// Внутри сессии узлы выполняются строго последовательно;
// параллелизм существует только между сессиями и ограничен
// MaxConcurrency.
type Engine struct {
	sessions SessionSource
	runner   Runner

	// MQ
	conn     *mq.Connection
	consumer *mq.Consumer

	// active — сессии в процессе выполнения.
	active map[uuid.UUID]struct{}
	mu     sync.RWMutex

	// sem ограничивает число одновременно выполняющихся сессий.
	sem chan struct{}

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Engine.
type Config struct {
	Sessions SessionSource
	Runner   Runner

	// Conn опционален: без RabbitMQ engine работает только на polling.
	Conn *mq.Connection

	PollInterval   time.Duration // интервал polling (default: 10s)
	BatchSize      int           // количество сессий за один poll (default: 100)
	MaxConcurrency int           // одновременно выполняемых сессий (default: 10)

	Logger *slog.Logger
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultMaxConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		sessions:     cfg.Sessions,
		runner:       cfg.Runner,
		conn:         cfg.Conn,
		active:       make(map[uuid.UUID]struct{}),
		sem:          make(chan struct{}, concurrency),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Engine.
//
// Запускает:
//   - Consumer для sessions.pending (если настроен RabbitMQ)
//   - Polling горутину для fallback
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	e.logger.Info("starting engine",
		"poll_interval", e.pollInterval,
		"batch_size", e.batchSize,
		"max_concurrency", cap(e.sem),
	)

	if e.conn != nil {
		e.consumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueSessionsPending),
			Handler:  e.handleSessionPending,
			Prefetch: cap(e.sem),
		})

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("session consumer error", "error", err)
			}
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()

	e.logger.Info("engine started")
	return nil
}

// Stop останавливает Engine и дожидается завершения
// выполняющихся сессий.
func (e *Engine) Stop() {
	e.logger.Info("stopping engine...")

	if e.consumer != nil {
		e.consumer.Stop()
	}
	if e.cancelFunc != nil {
		e.cancelFunc()
	}

	e.wg.Wait()

	e.logger.Info("engine stopped")
}

// ActiveCount возвращает количество выполняющихся сессий.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// handleSessionPending обрабатывает сообщение session.pending.
//
// Подтверждением доставки владеет consumer: возврат nil ack'ает
// сообщение сразу после постановки сессии в работу — результат
// выполнения фиксируется в хранилище самим Manager, а не через
// очередь. Нечитаемый payload уходит в DLQ через ErrDropMessage.
func (e *Engine) handleSessionPending(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.SessionPendingPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: session.pending payload: %v", mq.ErrDropMessage, err)
	}

	e.dispatch(ctx, payload.SessionID)
	return nil
}

// pollLoop — цикл polling для fallback.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем сессии,
	// созданные пока engine был выключен
	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (e *Engine) poll(ctx context.Context) {
	pending, err := e.sessions.ListPending(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("failed to list pending sessions", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	e.logger.Debug("poll found pending sessions", "count", len(pending))

	for i := range pending {
		e.dispatch(ctx, pending[i].ID)
	}
}

// dispatch ставит сессию в работу, если она ещё не выполняется.
func (e *Engine) dispatch(ctx context.Context, sessionID uuid.UUID) {
	if !e.tryActivate(sessionID) {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.deactivate(sessionID)

		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			return
		}

		if err := e.runner.Run(ctx, sessionID); err != nil {
			switch {
			case errors.Is(err, session.ErrAlreadyFinished):
				// Сессию уже выполнил кто-то другой (или отменили)
				e.logger.Debug("session already finished", "session_id", sessionID)
			default:
				// Терминальный статус failed уже зафиксирован Manager'ом
				e.logger.Error("session failed", "session_id", sessionID, "error", err)
			}
		}
	}()
}

func (e *Engine) tryActivate(sessionID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.active[sessionID]; exists {
		return false
	}
	e.active[sessionID] = struct{}{}
	return true
}

func (e *Engine) deactivate(sessionID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, sessionID)
}
