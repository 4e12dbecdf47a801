package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidState indicates a state machine transition that is not allowed,
// such as mutating a task that already reached a terminal status.
var ErrInvalidState = errors.New("invalid task state")

// SyncStatus represents the lifecycle state of a sync task.
type SyncStatus string

// Task lifecycle states. A task starts as pending, moves to in_progress when
// the first track is processed, and ends in exactly one terminal state.
const (
	StatusPending    SyncStatus = "pending"
	StatusInProgress SyncStatus = "in_progress"
	StatusCompleted  SyncStatus = "completed"
	StatusFailed     SyncStatus = "failed"
	StatusPartial    SyncStatus = "partial"
	StatusCancelled  SyncStatus = "cancelled"
)

// Terminal reports whether the status is final. No transition leaves a terminal state.
func (s SyncStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the status is a known lifecycle state.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusPartial, StatusCancelled:
		return true
	}
	return false
}

// MatchStrategy identifies which matching technique produced a result.
type MatchStrategy string

// Match strategies in priority order.
const (
	StrategyISRC        MatchStrategy = "exact_isrc"
	StrategyArtistTitle MatchStrategy = "artist_title_exact"
	StrategyFuzzy       MatchStrategy = "fuzzy"
	StrategyUnmatched   MatchStrategy = "unmatched"
)

// MatchResult records the outcome of resolving one source track against the
// destination catalog.
type MatchResult struct {
	Source      Track         `json:"source_track"`
	Destination *Track        `json:"destination_track,omitempty"`
	Strategy    MatchStrategy `json:"strategy"`
	Confidence  float64       `json:"confidence"`
	ErrorReason string        `json:"error_reason,omitempty"`
}

// Matched reports whether a destination track was accepted.
func (m MatchResult) Matched() bool {
	return m.Destination != nil
}

// Validate enforces the result invariant: a destination track is present
// exactly when the strategy is not unmatched and no error was recorded.
func (m MatchResult) Validate() error {
	hasDest := m.Destination != nil
	shouldHaveDest := m.Strategy != StrategyUnmatched && m.ErrorReason == ""
	if hasDest != shouldHaveDest {
		return fmt.Errorf("match result for %q: destination presence inconsistent with strategy %q", m.Source.Title, m.Strategy)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("match result for %q: confidence %f out of range", m.Source.Title, m.Confidence)
	}
	return nil
}

// SyncTask is the mutable aggregate for one playlist sync operation.
//
// It is created when a sync request is accepted, mutated exclusively by the
// sync engine while processing, and becomes immutable once it reaches a
// terminal status. Results preserve source playlist order.
type SyncTask struct {
	TaskID             string        `json:"task_id"`
	Sequence           int           `json:"-"`
	UserID             string        `json:"user_id"`
	Status             SyncStatus    `json:"status"`
	SourcePlaylistID   string        `json:"source_playlist_id"`
	SourcePlaylistName string        `json:"source_playlist_name,omitempty"`
	DestPlaylistID     string        `json:"destination_playlist_id,omitempty"`
	DestPlaylistName   string        `json:"destination_playlist_name,omitempty"`
	TotalTracks        int           `json:"total_tracks"`
	ProcessedTracks    int           `json:"processed_tracks"`
	MatchedTracks      int           `json:"matched_tracks"`
	FailedTracks       int           `json:"failed_tracks"`

	// IncludeUnavailable keeps unmatched tracks visible in snapshots and
	// reports. Every result is stored either way; the flag only controls
	// what Snapshot exposes.
	IncludeUnavailable bool `json:"include_unavailable_tracks,omitempty"`

	Results      []MatchResult `json:"track_results,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Created      time.Time     `json:"created_at"`
	Updated      time.Time     `json:"updated_at"`
	Completed    *time.Time    `json:"completed_at,omitempty"`
	DeletedAt    *time.Time    `json:"-"`
}

// NewSyncTask creates a pending task for the given user and source playlist.
// The ID is assigned by the repository on create.
func NewSyncTask(userID, sourcePlaylistID string) *SyncTask {
	now := time.Now()
	return &SyncTask{
		UserID:           userID,
		Status:           StatusPending,
		SourcePlaylistID: sourcePlaylistID,
		Created:          now,
		Updated:          now,
	}
}

// Model interface implementation

func (t *SyncTask) ID() string              { return t.TaskID }
func (t *SyncTask) SetID(id string)         { t.TaskID = id }
func (t *SyncTask) CreatedAt() time.Time    { return t.Created }
func (t *SyncTask) UpdatedAt() time.Time    { return t.Updated }
func (t *SyncTask) SetUpdatedAt(u time.Time) { t.Updated = u }
func (t *SyncTask) SetDeletedAt(d *time.Time) { t.DeletedAt = d }

// Validate checks the task's status and counter invariants.
func (t *SyncTask) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("task missing user id")
	}
	if t.SourcePlaylistID == "" {
		return fmt.Errorf("task missing source playlist id")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	if t.ProcessedTracks != t.MatchedTracks+t.FailedTracks {
		return fmt.Errorf("counter invariant violated: processed=%d matched=%d failed=%d",
			t.ProcessedTracks, t.MatchedTracks, t.FailedTracks)
	}
	if t.ProcessedTracks > t.TotalTracks {
		return fmt.Errorf("processed %d exceeds total %d", t.ProcessedTracks, t.TotalTracks)
	}
	for _, res := range t.Results {
		if err := res.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Progress returns completion as a fraction in [0, 1]. Zero total tracks
// reports zero progress; that case terminates as "nothing to sync".
func (t *SyncTask) Progress() float64 {
	if t.TotalTracks == 0 {
		return 0
	}
	return float64(t.ProcessedTracks) / float64(t.TotalTracks)
}

// Terminal reports whether the task reached a terminal status.
func (t *SyncTask) Terminal() bool {
	return t.Status.Terminal()
}

func (t *SyncTask) touch() {
	t.Updated = time.Now()
}

func (t *SyncTask) finish(status SyncStatus) {
	now := time.Now()
	t.Status = status
	t.Updated = now
	if t.Completed == nil {
		t.Completed = &now
	}
}

// Start transitions the task from pending to in_progress.
func (t *SyncTask) Start() error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: cannot start task in status %q", ErrInvalidState, t.Status)
	}
	t.Status = StatusInProgress
	t.touch()
	return nil
}

// RecordResult appends one per-track outcome and updates the counters.
// The caller is responsible for appending results in source playlist order.
func (t *SyncTask) RecordResult(res MatchResult) error {
	if t.Terminal() {
		return fmt.Errorf("%w: task %s already %q", ErrInvalidState, t.TaskID, t.Status)
	}
	if err := res.Validate(); err != nil {
		return err
	}
	if t.ProcessedTracks >= t.TotalTracks {
		return fmt.Errorf("%w: all %d tracks already processed", ErrInvalidState, t.TotalTracks)
	}

	t.Results = append(t.Results, res)
	t.ProcessedTracks++
	if res.Matched() {
		t.MatchedTracks++
	} else {
		t.FailedTracks++
	}
	t.touch()
	return nil
}

// DemoteResult turns an already recorded match into a failure, shifting the
// counters so they stay consistent with the stored results. Used when a batch
// add drops tracks the matcher had accepted. Demoting an unmatched result is
// a no-op.
func (t *SyncTask) DemoteResult(index int, reason string) error {
	if t.Terminal() {
		return fmt.Errorf("%w: task %s already %q", ErrInvalidState, t.TaskID, t.Status)
	}
	if index < 0 || index >= len(t.Results) {
		return fmt.Errorf("no recorded result at index %d", index)
	}

	res := &t.Results[index]
	if !res.Matched() {
		return nil
	}
	res.Destination = nil
	res.Strategy = StrategyUnmatched
	res.Confidence = 0
	res.ErrorReason = reason
	t.MatchedTracks--
	t.FailedTracks++
	t.touch()
	return nil
}

// Complete transitions the task to its success terminal state: completed when
// every track matched, partial when at least one failed.
func (t *SyncTask) Complete() error {
	if t.Status != StatusInProgress && !(t.Status == StatusPending && t.TotalTracks == 0) {
		return fmt.Errorf("%w: cannot complete task in status %q", ErrInvalidState, t.Status)
	}
	if t.FailedTracks > 0 {
		t.finish(StatusPartial)
	} else {
		t.finish(StatusCompleted)
	}
	return nil
}

// Fail transitions the task to the failed terminal state with a reason.
func (t *SyncTask) Fail(msg string) error {
	if t.Terminal() {
		return fmt.Errorf("%w: task %s already %q", ErrInvalidState, t.TaskID, t.Status)
	}
	t.ErrorMessage = msg
	t.finish(StatusFailed)
	return nil
}

// Cancel transitions the task to the cancelled terminal state. Destination
// tracks already added are left in place.
func (t *SyncTask) Cancel() error {
	if t.Terminal() {
		return fmt.Errorf("%w: task %s already %q", ErrInvalidState, t.TaskID, t.Status)
	}
	t.finish(StatusCancelled)
	return nil
}

// Summary returns a copy without per-track results, for history listings.
func (t *SyncTask) Summary() SyncTask {
	summary := *t
	summary.Results = nil
	return summary
}

// Snapshot returns the caller-facing view of the task. Unmatched results are
// omitted unless the sync was requested with IncludeUnavailable; matched
// results and all counters are always present.
func (t *SyncTask) Snapshot() SyncTask {
	snapshot := *t
	if t.IncludeUnavailable || len(t.Results) == 0 {
		snapshot.Results = append([]MatchResult(nil), t.Results...)
		return snapshot
	}

	visible := make([]MatchResult, 0, len(t.Results))
	for _, res := range t.Results {
		if res.Matched() {
			visible = append(visible, res)
		}
	}
	snapshot.Results = visible
	return snapshot
}
