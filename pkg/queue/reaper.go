package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReaperRepository defines the interface for reaper operations
type ReaperRepository interface {
	// ReapExpired atomically transitions every processing message whose
	// lock is older than timeout back to pending (attempts+1, backoff
	// visibility) or to failed once attempts reach the budget. Returns the
	// number of messages touched. Must be safe to invoke concurrently with
	// itself and with lease/ack traffic.
	ReapExpired(ctx context.Context, timeout time.Duration, policy RetryPolicy) (int, error)

	// CountStuck reports processing messages with an expired lease. Read-only.
	CountStuck(ctx context.Context) (int, error)

	// CountFailedSince reports dead-lettered messages newer than since. Read-only.
	CountFailedSince(ctx context.Context, since time.Time) (int, error)
}

// Stats is the reaper's monitoring contract: a read-only snapshot for health
// dashboards. A permanently-down reaper is detectable only indirectly, via a
// growing Stuck count, so that number is a first-class operational signal.
type Stats struct {
	Stuck          int `json:"stuck"`
	RecentlyFailed int `json:"recently_failed"`
}

// Reaper is the system-wide safety net against crashed or hung workers. A
// worker that dies mid-job leaves its leased message in processing; without
// the reaper that message would be lost forever. The scan interval and the
// lease duration jointly bound the maximum invisible time after a crash.
type Reaper struct {
	repo         ReaperRepository
	interval     time.Duration
	timeout      time.Duration
	policy       RetryPolicy
	failedWindow time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a reaper over a queue store.
func NewReaper(repo ReaperRepository, opts ...ReaperOption) (*Reaper, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &reaperOptions{
		interval:     5 * time.Second,
		timeout:      time.Minute,
		policy:       DefaultRetryPolicy(),
		failedWindow: time.Hour,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Reaper{
		repo:         repo,
		interval:     options.interval,
		timeout:      options.timeout,
		policy:       options.policy,
		failedWindow: options.failedWindow,
		logger:       options.logger,
	}, nil
}

// Reap performs a single sweep. A sweep that finds nothing is the expected
// common case and is not an error.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	reaped, err := r.repo.ReapExpired(ctx, r.timeout, r.policy)
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired leases: %w", err)
	}

	if reaped > 0 {
		r.logger.Warn("recovered messages with expired leases",
			slog.Int("reaped", reaped),
			slog.Duration("timeout", r.timeout))
	}

	return reaped, nil
}

// Stats returns the current stuck and recently-failed counts without
// mutating any state.
func (r *Reaper) Stats(ctx context.Context) (Stats, error) {
	stuck, err := r.repo.CountStuck(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count stuck messages: %w", err)
	}

	failed, err := r.repo.CountFailedSince(ctx, time.Now().Add(-r.failedWindow))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}

	return Stats{Stuck: stuck, RecentlyFailed: failed}, nil
}

// Start begins sweeping on a fixed schedule, independent of producer and
// consumer activity. The reaper must run even when all workers are down.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return fmt.Errorf("reaper already started")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()

	r.logger.Info("reaper started",
		slog.Duration("interval", r.interval),
		slog.Duration("timeout", r.timeout))

	return nil
}

// Stop gracefully shuts down the reaper, waiting for an in-flight sweep.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return fmt.Errorf("reaper not started")
	}
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	r.logger.Info("reaper stopped")
	return nil
}

// Run starts the reaper and returns a function suitable for errgroup
func (r *Reaper) Run(ctx context.Context) func() error {
	return func() error {
		if err := r.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return r.Stop()
	}
}

// run is the periodic sweep loop
func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reap(r.ctx); err != nil {
				r.logger.Error("reap sweep failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
