// Package sqlite provides SQLite-backed durable storage for checkpoint
// chains and intermediate writes.
//
// The backend stores composite keys and opaque record values in a single
// two-column table, perfect for applications requiring a lightweight,
// serverless medium with ACID compliance and no external server process.
//
// # Key Features
//
//   - Serverless, file-based database
//   - ACID transaction support; INSERT ... ON CONFLICT DO NOTHING gives the
//     atomic compare-and-insert the store relies on
//   - WAL mode for concurrent readers
//   - Range scans over the primary key serve prefix/cursor pagination
//   - Support for custom table names
//
// # Basic Usage
//
//	import (
//		"github.com/smallnest/checkpointgo/checkpoint"
//		"github.com/smallnest/checkpointgo/checkpoint/sqlite"
//	)
//
//	backend, err := sqlite.New(sqlite.Options{
//		Path:      "./checkpoints.db", // Database file path
//		TableName: "checkpoint_kv",    // Optional table name
//	})
//	if err != nil {
//		return err
//	}
//	defer backend.Close()
//
//	store := checkpoint.New(backend)
//
// Use ":memory:" as the path for a throwaway in-process database in tests.
package sqlite
