// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TaskRepository] : Sync task history with match results serialized as JSON
//   - [TrackRepository] : Track caching with ISRC-based cross-service matching
//
// Sequence numbers provide stable, human-readable ordering (e.g., task #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
