package pg

import "context"

// logger is the slog-compatible subset used for migration log routing.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
