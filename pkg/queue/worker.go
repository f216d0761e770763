package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IdempotencyGuard suppresses duplicate side effects on redelivery. Acquire
// claims a key before the handler runs; Commit marks it done after success;
// Release frees it after a failure so a later attempt can run.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Commit(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
	Done(ctx context.Context, key string) (bool, error)
}

// Worker polls the router for leased messages and dispatches them to
// kind-addressed handlers. Workers share no in-process state; all
// coordination happens through the store's atomic lease operation, so any
// number of worker processes can run in parallel.
type Worker struct {
	router   *Router
	handlers map[Kind]Handler
	guard    IdempotencyGuard
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pollInterval time.Duration
	logger       *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new job worker on top of a Router.
func NewWorker(router *Router, opts ...WorkerOption) (*Worker, error) {
	if router == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		pollInterval:  5 * time.Second,
		maxConcurrent: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		router:       router,
		handlers:     make(map[Kind]Handler),
		guard:        options.guard,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrent),
		pollInterval: options.pollInterval,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a handler for its kind. The kind must be in the
// registry; a later registration for the same kind replaces the earlier one.
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}
	if !handler.Kind().Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, handler.Kind())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Kind()] = handler
	return nil
}

// RegisterHandlers registers multiple handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("kinds", w.kinds()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, draining in-flight handlers.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// WorkerInfo returns the worker's identity for heartbeat reporting
func (w *Worker) WorkerInfo() (id uuid.UUID, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID, hostname, os.Getpid()
}

func (w *Worker) kinds() []Kind {
	w.mu.RLock()
	defer w.mu.RUnlock()

	kinds := make([]Kind, 0, len(w.handlers))
	for _, k := range Kinds() {
		if _, ok := w.handlers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// run is the main polling loop
func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Use stopMu to ensure we don't add to WaitGroup after Stop() starts
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem // Release slot
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }() // Release slot

					if err := w.pollAndProcess(); err != nil {
						w.logger.Error("failed to process job",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				// All slots busy, skip this tick
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// pollAndProcess leases at most one message across the registered kinds
func (w *Worker) pollAndProcess() error {
	for _, kind := range w.kinds() {
		env, err := w.router.Receive(w.ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to receive %s job: %w", kind, err)
		}
		if env == nil {
			continue
		}

		w.logger.Debug("leased job",
			slog.String("worker_id", w.workerID.String()),
			slog.String("message_id", env.MessageID.String()),
			slog.String("kind", env.Kind.String()),
			slog.Int("attempts", env.Attempts))

		return w.process(env)
	}
	return nil
}

// process executes a leased message with its handler. A failed handler is
// never acked: the lease simply lapses and the reaper requeues or
// dead-letters the message, uniformly for crashes, errors, and timeouts.
func (w *Worker) process(env *Envelope) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("message_id", env.MessageID.String()),
				slog.String("kind", env.Kind.String()),
				slog.Any("panic", r))
			w.releaseGuard(env)
		}
	}()

	w.mu.RLock()
	handler := w.handlers[env.Kind]
	w.mu.RUnlock()

	if w.guard != nil {
		proceed, err := w.claimGuard(env)
		if err != nil || !proceed {
			return err
		}
	}

	// Bound handler execution by the lease window, detached from the worker
	// lifecycle so graceful shutdown lets in-flight jobs finish.
	ctx, cancel := context.WithDeadline(context.Background(), env.LeaseExpiresAt)
	defer cancel()

	err := handler.Handle(ctx, env.Payload)
	duration := time.Since(start)

	if err != nil {
		w.logger.Error("job failed, leaving lease to expire",
			slog.String("worker_id", w.workerID.String()),
			slog.String("message_id", env.MessageID.String()),
			slog.String("kind", env.Kind.String()),
			slog.Int("attempts", env.Attempts),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		w.releaseGuard(env)
		return nil
	}

	// Completion must survive a graceful stop: w.ctx is already cancelled
	// while draining, and failing the commit or ack here would force a
	// pointless redelivery of work that succeeded.
	doneCtx := context.WithoutCancel(w.ctx)

	if w.guard != nil {
		if err := w.guard.Commit(doneCtx, guardKey(env)); err != nil {
			w.logger.Error("failed to commit idempotency key",
				slog.String("message_id", env.MessageID.String()),
				slog.String("error", err.Error()))
		}
	}

	if err := w.router.Ack(doneCtx, env.Kind, env.MessageID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", env.MessageID, err)
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("message_id", env.MessageID.String()),
		slog.String("kind", env.Kind.String()),
		slog.Duration("duration", duration))

	return nil
}

// claimGuard claims the idempotency key for this delivery. A key already
// marked done means a previous delivery completed the side effect: the
// message is acked and skipped.
func (w *Worker) claimGuard(env *Envelope) (bool, error) {
	key := guardKey(env)

	ok, err := w.guard.Acquire(w.ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to acquire idempotency key %q: %w", key, err)
	}
	if ok {
		return true, nil
	}

	done, err := w.guard.Done(w.ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key %q: %w", key, err)
	}
	if done {
		w.logger.Info("duplicate delivery suppressed",
			slog.String("worker_id", w.workerID.String()),
			slog.String("message_id", env.MessageID.String()),
			slog.String("idempotency_key", env.IdempotencyKey))
		return false, w.router.Ack(w.ctx, env.Kind, env.MessageID)
	}

	// Another delivery is in flight; let this lease lapse.
	return false, nil
}

func (w *Worker) releaseGuard(env *Envelope) {
	if w.guard == nil {
		return
	}
	if err := w.guard.Release(context.WithoutCancel(w.ctx), guardKey(env)); err != nil {
		w.logger.Error("failed to release idempotency key",
			slog.String("message_id", env.MessageID.String()),
			slog.String("error", err.Error()))
	}
}

func guardKey(env *Envelope) string {
	return string(env.Kind) + ":" + env.IdempotencyKey
}
