// Package heartbeat provides worker liveness reporting, independent of the
// job queue: a heartbeat failure must never block job processing, and vice
// versa.
//
// Workers upsert a single row keyed by their identity on every interval; the
// row is never deleted, stale entries simply age out of the online
// computation. Observers derive online/offline by comparing last_seen_at to
// a liveness window (conventionally twice the reporting interval).
//
// The Publisher runs the reporting loop for a worker process:
//
//	registry := heartbeat.NewRegistry(repo)
//	pub, _ := heartbeat.NewPublisher(registry, workerID, "score-worker")
//	go pub.Start(ctx)
package heartbeat
