package models

import (
	"errors"
	"testing"
	"time"
)

func sampleTrack(id string) Track {
	return Track{
		ID:         id,
		Title:      "Song " + id,
		Artist:     "Artist",
		Album:      "Album",
		DurationMS: 210_000,
		ISRC:       "USUM7180000" + id,
	}
}

func matchedResult(id string) MatchResult {
	dest := sampleTrack("dest-" + id)
	return MatchResult{
		Source:      sampleTrack(id),
		Destination: &dest,
		Strategy:    StrategyISRC,
		Confidence:  1.0,
	}
}

func unmatchedResult(id, reason string) MatchResult {
	return MatchResult{
		Source:      sampleTrack(id),
		Strategy:    StrategyUnmatched,
		ErrorReason: reason,
	}
}

func TestMatchResultValidate(t *testing.T) {
	dest := sampleTrack("d1")

	tests := []struct {
		name    string
		result  MatchResult
		wantErr bool
	}{
		{"matched with destination", matchedResult("1"), false},
		{"unmatched without destination", unmatchedResult("2", ""), false},
		{"unmatched with error reason", unmatchedResult("3", "not found"), false},
		{
			name: "matched strategy without destination",
			result: MatchResult{
				Source:     sampleTrack("4"),
				Strategy:   StrategyFuzzy,
				Confidence: 0.8,
			},
			wantErr: true,
		},
		{
			name: "unmatched strategy with destination",
			result: MatchResult{
				Source:      sampleTrack("5"),
				Destination: &dest,
				Strategy:    StrategyUnmatched,
			},
			wantErr: true,
		},
		{
			name: "destination present alongside error reason",
			result: MatchResult{
				Source:      sampleTrack("6"),
				Destination: &dest,
				Strategy:    StrategyFuzzy,
				Confidence:  0.8,
				ErrorReason: "add failed",
			},
			wantErr: true,
		},
		{
			name: "confidence out of range",
			result: MatchResult{
				Source:      sampleTrack("7"),
				Destination: &dest,
				Strategy:    StrategyFuzzy,
				Confidence:  1.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSyncTaskLifecycle(t *testing.T) {
	task := NewSyncTask("user-1", "playlist-1")
	task.SetID("task-1")
	task.TotalTracks = 3

	if task.Status != StatusPending {
		t.Fatalf("new task status = %q, want pending", task.Status)
	}
	if task.Progress() != 0 {
		t.Errorf("pending task progress = %f, want 0", task.Progress())
	}

	if err := task.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("status after Start = %q", task.Status)
	}
	if err := task.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	for i, res := range []MatchResult{matchedResult("1"), matchedResult("2"), unmatchedResult("3", "")} {
		if err := task.RecordResult(res); err != nil {
			t.Fatalf("RecordResult(%d) error: %v", i, err)
		}
		if task.ProcessedTracks != task.MatchedTracks+task.FailedTracks {
			t.Fatalf("counter invariant violated after result %d", i)
		}
	}

	if task.ProcessedTracks != 3 || task.MatchedTracks != 2 || task.FailedTracks != 1 {
		t.Errorf("counters = %d/%d/%d, want 3/2/1", task.ProcessedTracks, task.MatchedTracks, task.FailedTracks)
	}
	if task.Progress() != 1.0 {
		t.Errorf("progress = %f, want 1.0", task.Progress())
	}

	if err := task.Complete(); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if task.Status != StatusPartial {
		t.Errorf("status = %q, want partial with one failed track", task.Status)
	}
	if task.Completed == nil {
		t.Error("CompletedAt not set on terminal transition")
	}
}

func TestSyncTaskTerminalImmutability(t *testing.T) {
	task := NewSyncTask("user-1", "playlist-1")
	task.TotalTracks = 1

	if err := task.Fail("source playlist unreadable"); err != nil {
		t.Fatalf("Fail() error: %v", err)
	}

	completedAt := *task.Completed
	time.Sleep(time.Millisecond)

	if err := task.Start(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Start() after terminal = %v, want ErrInvalidState", err)
	}
	if err := task.RecordResult(matchedResult("1")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordResult() after terminal = %v, want ErrInvalidState", err)
	}
	if err := task.Cancel(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancel() after terminal = %v, want ErrInvalidState", err)
	}
	if err := task.Fail("again"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Fail() after terminal = %v, want ErrInvalidState", err)
	}

	if !task.Completed.Equal(completedAt) {
		t.Error("CompletedAt changed after terminal state reached")
	}
}

func TestSyncTaskCompleteStates(t *testing.T) {
	t.Run("all matched ends completed", func(t *testing.T) {
		task := NewSyncTask("u", "p")
		task.TotalTracks = 2
		task.Start()
		task.RecordResult(matchedResult("1"))
		task.RecordResult(matchedResult("2"))
		if err := task.Complete(); err != nil {
			t.Fatal(err)
		}
		if task.Status != StatusCompleted {
			t.Errorf("status = %q, want completed", task.Status)
		}
	})

	t.Run("empty playlist completes from pending", func(t *testing.T) {
		task := NewSyncTask("u", "p")
		if err := task.Complete(); err != nil {
			t.Fatal(err)
		}
		if task.Status != StatusCompleted {
			t.Errorf("status = %q, want completed", task.Status)
		}
	})

	t.Run("record beyond total rejected", func(t *testing.T) {
		task := NewSyncTask("u", "p")
		task.TotalTracks = 1
		task.Start()
		task.RecordResult(matchedResult("1"))
		if err := task.RecordResult(matchedResult("2")); !errors.Is(err, ErrInvalidState) {
			t.Errorf("RecordResult beyond total = %v, want ErrInvalidState", err)
		}
	})
}

func TestSyncTaskValidate(t *testing.T) {
	task := NewSyncTask("user-1", "playlist-1")
	task.TotalTracks = 2
	if err := task.Validate(); err != nil {
		t.Errorf("valid task failed validation: %v", err)
	}

	task.ProcessedTracks = 2
	task.MatchedTracks = 1
	if err := task.Validate(); err == nil {
		t.Error("expected counter invariant violation")
	}

	task.FailedTracks = 1
	task.TotalTracks = 1
	if err := task.Validate(); err == nil {
		t.Error("expected processed > total violation")
	}
}

func TestSyncTaskSummary(t *testing.T) {
	task := NewSyncTask("user-1", "playlist-1")
	task.TotalTracks = 1
	task.Start()
	task.RecordResult(matchedResult("1"))

	summary := task.Summary()
	if summary.Results != nil {
		t.Error("summary should drop per-track results")
	}
	if summary.MatchedTracks != 1 {
		t.Error("summary should keep counters")
	}
}

func TestSyncTaskDemoteResult(t *testing.T) {
	newRecorded := func(t *testing.T) *SyncTask {
		t.Helper()
		task := NewSyncTask("user-1", "playlist-1")
		task.TotalTracks = 2
		task.Start()
		task.RecordResult(matchedResult("1"))
		task.RecordResult(unmatchedResult("2", "no candidates"))
		return task
	}

	t.Run("shifts counters and clears the destination", func(t *testing.T) {
		task := newRecorded(t)
		if err := task.DemoteResult(0, "rejected by catalog"); err != nil {
			t.Fatalf("expected demotion, got %v", err)
		}
		if task.Results[0].Matched() || task.Results[0].ErrorReason != "rejected by catalog" {
			t.Errorf("result not demoted: %+v", task.Results[0])
		}
		if task.MatchedTracks != 0 || task.FailedTracks != 2 || task.ProcessedTracks != 2 {
			t.Errorf("counters inconsistent: matched=%d failed=%d processed=%d",
				task.MatchedTracks, task.FailedTracks, task.ProcessedTracks)
		}
		if err := task.Validate(); err != nil {
			t.Errorf("demoted task should validate: %v", err)
		}
	})

	t.Run("unmatched results are untouched", func(t *testing.T) {
		task := newRecorded(t)
		if err := task.DemoteResult(1, "late failure"); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}
		if task.Results[1].ErrorReason != "no candidates" {
			t.Errorf("unmatched result rewritten: %+v", task.Results[1])
		}
		if task.FailedTracks != 1 {
			t.Errorf("counters shifted on no-op: failed=%d", task.FailedTracks)
		}
	})

	t.Run("rejects out of range indexes", func(t *testing.T) {
		task := newRecorded(t)
		if err := task.DemoteResult(5, "x"); err == nil {
			t.Error("expected error for missing result")
		}
	})

	t.Run("terminal tasks are immutable", func(t *testing.T) {
		task := newRecorded(t)
		task.Complete()
		if err := task.DemoteResult(0, "x"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestSyncTaskSnapshot(t *testing.T) {
	task := NewSyncTask("user-1", "playlist-1")
	task.TotalTracks = 3
	task.Start()
	task.RecordResult(matchedResult("1"))
	task.RecordResult(unmatchedResult("2", "no candidates"))
	task.RecordResult(matchedResult("3"))

	t.Run("hides unmatched by default", func(t *testing.T) {
		snapshot := task.Snapshot()
		if len(snapshot.Results) != 2 {
			t.Fatalf("expected 2 visible results, got %d", len(snapshot.Results))
		}
		for _, res := range snapshot.Results {
			if !res.Matched() {
				t.Errorf("unmatched result should be hidden: %+v", res)
			}
		}
		if snapshot.FailedTracks != 1 {
			t.Error("counters must survive filtering")
		}
	})

	t.Run("keeps unmatched when requested", func(t *testing.T) {
		task.IncludeUnavailable = true
		defer func() { task.IncludeUnavailable = false }()

		snapshot := task.Snapshot()
		if len(snapshot.Results) != 3 {
			t.Fatalf("expected all results, got %d", len(snapshot.Results))
		}
	})

	t.Run("filtering does not touch the task", func(t *testing.T) {
		_ = task.Snapshot()
		if len(task.Results) != 3 {
			t.Errorf("task results mutated by snapshot, got %d", len(task.Results))
		}
	})
}
