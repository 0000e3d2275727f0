// Package observability provides the event log and metrics for PriorityOS.
// Events are persisted as JSON Lines (JSONL) and metrics are derived
// on demand from the log.
package observability
