package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher runs the periodic self-reporting loop for one worker process.
// It beats immediately on start, then on every interval, and records a final
// stopped status on shutdown.
type Publisher struct {
	registry   *Registry
	workerID   uuid.UUID
	workerType string
	hostname   string
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisher creates a heartbeat publisher for the given worker identity.
func NewPublisher(registry *Registry, workerID uuid.UUID, workerType string, opts ...PublisherOption) (*Publisher, error) {
	if registry == nil {
		return nil, ErrRepositoryNil
	}
	if workerID == uuid.Nil {
		return nil, ErrWorkerIDRequired
	}
	if workerType == "" {
		return nil, ErrWorkerTypeRequired
	}

	hostname, _ := os.Hostname()

	options := &publisherOptions{
		interval: 30 * time.Second,
		hostname: hostname,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Publisher{
		registry:   registry,
		workerID:   workerID,
		workerType: workerType,
		hostname:   options.hostname,
		interval:   options.interval,
		logger:     options.logger,
	}, nil
}

// Interval reports the configured heartbeat interval; observers typically
// use twice this value as the liveness window.
func (p *Publisher) Interval() time.Duration { return p.interval }

// Start begins reporting in the background
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return fmt.Errorf("heartbeat publisher already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.beat(p.ctx, WorkerStatusRunning)

	p.wg.Add(1)
	go p.run()

	return nil
}

// Stop halts reporting and records a final stopped heartbeat.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return fmt.Errorf("heartbeat publisher not started")
	}
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	// Best effort: the process is going away either way.
	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	p.beat(ctx, WorkerStatusStopped)

	return nil
}

// Run starts the publisher and returns a function suitable for errgroup
func (p *Publisher) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return p.Stop()
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.beat(p.ctx, WorkerStatusRunning)
		}
	}
}

func (p *Publisher) beat(ctx context.Context, status WorkerStatus) {
	if err := p.registry.Beat(ctx, p.workerID, p.workerType, p.hostname, status); err != nil {
		// Liveness reporting must never take a worker down with it.
		p.logger.Error("failed to report heartbeat",
			slog.String("worker_id", p.workerID.String()),
			slog.String("worker_type", p.workerType),
			slog.String("error", err.Error()))
	}
}
