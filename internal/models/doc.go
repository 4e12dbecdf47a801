// Package models defines domain entities and persistence interfaces for the playlist sync service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Playlist] : Basic playlist metadata from music services
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata with ISRC for cross-service matching
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncTask] : Sync operations tracking progress, per-track results, and terminal outcome
//   - [PersistedTrack] : Cached tracks with ISRC for matching optimization
//
// [SyncTask] owns the task state machine (pending → in_progress → completed/failed/partial/cancelled)
// and maintains the counter invariant processed = matched + failed ≤ total across every mutation.
// [MatchResult] records the outcome of matching one source track against the destination catalog.
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
