// Package redis connects the daemon to the Redis instance backing the
// consumer-side idempotency guard.
//
// It wraps go-redis with a retrying Connect driven by env configuration and
// a health probe for the ops server. Key semantics live in pkg/idempotency;
// this package only owns the connection lifecycle.
package redis
