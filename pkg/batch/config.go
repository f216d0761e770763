package batch

// Config contains batch ingest settings loaded from environment variables.
type Config struct {
	ErrorThresholdPercent float64 `env:"BATCH_ERROR_THRESHOLD_PERCENT" envDefault:"10"`
}
