package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/docket/pkg/batch"
	"github.com/dmitrymomot/docket/pkg/config"
	"github.com/dmitrymomot/docket/pkg/heartbeat"
	"github.com/dmitrymomot/docket/pkg/httpserver"
	"github.com/dmitrymomot/docket/pkg/logger"
	"github.com/dmitrymomot/docket/pkg/pg"
	"github.com/dmitrymomot/docket/pkg/queue"
	"github.com/dmitrymomot/docket/pkg/redis"
)

const serviceName = "docketd"

// reaperWorkerType identifies the reaper in the heartbeat registry so a dead
// reaper shows up as an offline worker type on the health view.
const reaperWorkerType = "reaper"

type appConfig struct {
	Logger    logger.Config
	PG        pg.Config
	Redis     redis.Config
	Queue     queue.Config
	Heartbeat heartbeat.Config
	Batch     batch.Config
	S3        batch.S3Config
	HTTP      httpserver.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg.Logger)
	config.MustLoad(&cfg.PG)
	config.MustLoad(&cfg.Redis)
	config.MustLoad(&cfg.Queue)
	config.MustLoad(&cfg.Heartbeat)
	config.MustLoad(&cfg.Batch)
	config.MustLoad(&cfg.S3)
	config.MustLoad(&cfg.HTTP)

	log := logger.NewFromConfig(serviceName, cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "daemon exited with error", logger.Error(err))
		return
	}
	log.InfoContext(ctx, "daemon stopped")
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store, err := queue.NewPostgresStorage(pool)
	if err != nil {
		return err
	}

	reaper, err := queue.NewReaper(store,
		queue.WithReapInterval(cfg.Queue.ReapInterval),
		queue.WithReapTimeout(cfg.Queue.ReapTimeout),
		queue.WithRetryPolicy(queue.RetryPolicy{
			BackoffBase: cfg.Queue.BackoffBase,
			BackoffMax:  cfg.Queue.BackoffMax,
		}),
		queue.WithReaperLogger(log),
	)
	if err != nil {
		return err
	}

	heartbeatRepo, err := heartbeat.NewPostgresRepository(pool)
	if err != nil {
		return err
	}
	registry, err := heartbeat.NewRegistry(heartbeatRepo)
	if err != nil {
		return err
	}

	// The reaper reports its own liveness: a silent reaper is only otherwise
	// visible as a slowly growing stuck-job count.
	publisher, err := heartbeat.NewPublisher(registry, uuid.New(), reaperWorkerType,
		heartbeat.WithInterval(cfg.Heartbeat.Interval),
		heartbeat.WithPublisherLogger(log),
	)
	if err != nil {
		return err
	}

	router, err := queue.NewRouter(store,
		queue.WithLeaseDuration(cfg.Queue.LeaseDuration),
		queue.WithDefaultMaxAttempts(cfg.Queue.MaxAttempts),
	)
	if err != nil {
		return err
	}

	batchRepo, err := batch.NewPostgresRepository(pool)
	if err != nil {
		return err
	}
	tracker, err := batch.NewTracker(batchRepo, router,
		batch.WithErrorThreshold(cfg.Batch.ErrorThresholdPercent),
		batch.WithTrackerLogger(log),
	)
	if err != nil {
		return err
	}

	// S3 ingest is optional: without a bucket the /batches endpoint only
	// accepts inline uploads.
	var objects *batch.ObjectSource
	if cfg.S3.Bucket != "" {
		objects, err = batch.NewObjectSource(ctx, cfg.S3)
		if err != nil {
			return err
		}
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	mux := opsRouter(ctx, opsDeps{
		log:            log,
		reaper:         reaper,
		registry:       registry,
		tracker:        tracker,
		batches:        batchRepo,
		objects:        objects,
		livenessWindow: cfg.Heartbeat.LivenessWindow,
		probes: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
		},
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(reaper.Run(ctx))
	g.Go(publisher.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, mux) })

	return g.Wait()
}
