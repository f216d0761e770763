package queue

import "time"

// Config holds the configuration for the job queue
type Config struct {
	LeaseDuration time.Duration `env:"QUEUE_LEASE_DURATION" envDefault:"30s"`
	PollInterval  time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
	ReapInterval  time.Duration `env:"QUEUE_REAP_INTERVAL" envDefault:"5s"`
	ReapTimeout   time.Duration `env:"QUEUE_REAP_TIMEOUT" envDefault:"1m"`
	MaxAttempts   int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	MaxConcurrent int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"10"`
	BackoffBase   time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"30s"`
	BackoffMax    time.Duration `env:"QUEUE_BACKOFF_MAX" envDefault:"30m"`
}
