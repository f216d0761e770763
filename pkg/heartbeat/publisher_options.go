package heartbeat

import (
	"log/slog"
	"time"
)

// PublisherOption is a functional option for configuring a Publisher
type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	interval time.Duration
	hostname string
	logger   *slog.Logger
}

// WithInterval sets how often the publisher reports
func WithInterval(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithHostname overrides the reported hostname
func WithHostname(hostname string) PublisherOption {
	return func(o *publisherOptions) {
		if hostname != "" {
			o.hostname = hostname
		}
	}
}

// WithPublisherLogger sets the logger for the publisher
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(o *publisherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
