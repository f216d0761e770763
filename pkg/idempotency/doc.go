// Package idempotency provides a consumer-side guard against duplicate
// side effects under at-least-once delivery.
//
// The queue deliberately promises at-least-once, not exactly-once: a message
// whose lease lapses is redelivered. The guard closes the gap at the
// consumer: before acting, a worker claims the message's idempotency key;
// after the side effect succeeds it commits the key, and any later delivery
// of the same key is suppressed.
//
// Claims are stored in Redis via SET NX with a TTL, so a consumer that
// crashes mid-claim does not wedge the key forever. Committed keys live
// longer (default 24h), covering the realistic redelivery horizon; a key
// aging out after that is acceptable because by then the queue row itself is
// long completed.
package idempotency
