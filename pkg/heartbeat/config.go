package heartbeat

import "time"

// Config holds the configuration for heartbeat reporting
type Config struct {
	Interval       time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`
	LivenessWindow time.Duration `env:"HEARTBEAT_LIVENESS_WINDOW" envDefault:"1m"` // conventionally 2x the interval
}
