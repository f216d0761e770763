// Package queue provides the durable job queue at the heart of the judgment
// enforcement pipeline: at-least-once delivery under a visibility-timeout
// lease, with idempotency keys as the dedup mechanism.
//
// The package is organised around four components:
//
//   - Router — the only entry point for producers and consumers; validates
//     job kinds against the fixed registry and wraps payloads into messages
//   - Worker — claims leased messages and dispatches them to kind-addressed
//     handlers in a polling loop
//   - Reaper — periodically recovers messages whose lease expired without an
//     ack, requeueing with backoff or dead-lettering at the attempt budget
//   - Storage — MemoryStorage for tests and local development,
//     PostgresStorage for production (skip-locked lease acquisition)
//
// Components interact only through the RouterRepository and ReaperRepository
// interfaces, so the queue can be backed by any store that offers atomic
// single-row state transitions.
//
// # Delivery semantics
//
// The queue promises at-least-once delivery, never exactly-once. A message is
// visible to Receive iff it is pending and its visibility deadline has passed.
// At most one worker holds a valid lease at any instant; a crashed or hung
// worker simply lets the lease lapse, and the Reaper returns the message to
// pending with an incremented attempt counter and a capped exponential
// backoff. Consumers suppress duplicate side effects by checking the
// caller-supplied idempotency key before acting.
//
// # Usage
//
//	router, _ := queue.NewRouter(storage)
//	id, err := router.Submit(ctx, queue.KindScore,
//		queue.DeriveKey(queue.KindScore, "case", "42"),
//		ScorePayload{CaseID: 42},
//	)
//
//	worker, _ := queue.NewWorker(router)
//	_ = worker.RegisterHandler(queue.NewHandler(queue.KindScore, scoreCase))
//	go worker.Start(ctx)
//
//	reaper, _ := queue.NewReaper(storage)
//	go reaper.Start(ctx)
//
// Package-level sentinel errors (e.g. ErrInvalidKind,
// ErrMissingIdempotencyKey) signal contract violations and can be checked
// with errors.Is.
package queue
