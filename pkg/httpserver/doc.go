// Package httpserver runs the daemon's operational HTTP endpoint with
// graceful shutdown.
//
// The ops surface is read-only (health probes, queue stats, worker liveness)
// and is served separately from any business traffic so a slow dashboard
// query can never interfere with job processing.
package httpserver
