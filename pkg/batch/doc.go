// Package batch records the outcome of bulk ingest operations that seed
// queue messages, and gates admission of each file as a whole.
//
// A batch is one uploaded file of judgment rows. Ingest hashes the file
// content first: a byte-identical re-upload is rejected before any row is
// parsed, so an accidental double upload can never flood the queue with
// duplicate jobs. Rows are then validated individually, and the batch is
// admitted all-or-nothing: if the share of invalid rows exceeds the error
// threshold the whole batch fails with a rejection reason and zero messages
// are enqueued. Files below the threshold proceed, enqueueing one scoring
// job per valid row with a deterministic idempotency key.
//
// Outcome rows persist the per-batch counters (total, valid, invalid,
// duplicate), timing, and rejection reason for operator dashboards. They are
// independent of the queue's own tables; a tracker failure never blocks job
// processing.
package batch
