package batch

import "log/slog"

// DefaultErrorThresholdPercent rejects a batch when more than this share of
// its rows fail validation.
const DefaultErrorThresholdPercent = 10.0

// TrackerOption is a functional option for configuring a Tracker
type TrackerOption func(*trackerOptions)

type trackerOptions struct {
	threshold float64
	log       *slog.Logger
}

// WithErrorThreshold sets the invalid-row percentage above which the whole
// batch is rejected (0-100)
func WithErrorThreshold(percent float64) TrackerOption {
	return func(o *trackerOptions) {
		if percent >= 0 && percent <= 100 {
			o.threshold = percent
		}
	}
}

// WithTrackerLogger sets the logger
func WithTrackerLogger(log *slog.Logger) TrackerOption {
	return func(o *trackerOptions) {
		if log != nil {
			o.log = log
		}
	}
}
