// Package pg bootstraps the PostgreSQL layer shared by the queue store,
// heartbeat registry, and batch outcome tracker.
//
// It wraps pgx/v5 pooling with retrying connect, goose/v3 schema migrations,
// and the small error classifiers the repositories need (not-found,
// duplicate key). Everything is configured from environment variables via
// the Config struct.
//
// Typical startup:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil { ... }
package pg
