// Package tasks orchestrates playlist syncs between music services with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines the sync lifecycle:
//
//  1. [SyncEngine.StartSync] : Accepts a request, persists a pending task, and runs the pipeline
//     - Exports the source playlist
//     - Creates the destination playlist when none is given
//     - Matches each track through the layered matcher strategies
//     - Adds matched tracks to the destination in source order
//
//  2. [SyncEngine.Status] : Returns a task's current state with per-track results
//
//  3. [SyncEngine.History] : Returns a user's past syncs, most recent first
//
//  4. [SyncEngine.Cancel] : Stops a running sync; completed track results are kept
//
// # Task State Machine
//
// A task starts pending, moves to in_progress when the pipeline picks it up,
// and ends in exactly one terminal status: completed (every track matched),
// partial (some failed), failed (the pipeline itself broke), or cancelled.
// Terminal tasks are immutable.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Track Caching
//
// The optional [TrackCacher] interface enables automatic track persistence during syncs.
//
// Tracks are cached silently (errors ignored) to avoid disrupting syncs.
// A cached destination track lets a later sync resolve the same ISRC without
// spending provider quota.
package tasks
