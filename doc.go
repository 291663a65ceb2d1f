// Checkpoint Go - Durable State for Resumable Execution Graphs
//
// checkpointgo persists the state of long-running, multi-step computations
// (workflow graphs, agent loops) so they can crash, move between processes,
// and resume from the last saved point, or rewind to any earlier one.
//
// The module is organized as:
//
//   - checkpoint:          the store core - checkpoint chains, the
//     intermediate write log, retention/compaction, codec
//   - checkpoint/memory:   in-process backend
//   - checkpoint/sqlite:   SQLite backend
//   - checkpoint/postgres: PostgreSQL backend
//   - checkpoint/redis:    Redis backend
//   - config:              YAML-driven backend and retention selection
//   - observability:       OpenTelemetry metrics and tracing hooks
//   - log:                 pluggable logging
//
// See package checkpoint for the data model and guarantees.
package checkpointgo
