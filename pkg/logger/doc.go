// Package logger builds the process-wide slog logger.
//
// Production uses JSON handlers for log aggregation; development uses text.
// Static attributes (service name, hostname) are attached once at
// construction. Domain attr helpers keep key names consistent across
// packages (message_id, batch_id, worker_id).
package logger
