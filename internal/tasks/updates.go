package tasks

import (
	"fmt"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	TaskID  string // Owning sync task
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	CreateDestination
	MatchTracks
	AddTracks
	Finalize
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case CreateDestination:
		return "create_destination"
	case MatchTracks:
		return "match_tracks"
	case AddTracks:
		return "add_tracks"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func fetchingSourceUpdate(taskID, serviceName string) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist from %s...", serviceName),
	}
}

func foundPlaylistUpdate(taskID string, export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func createDestinationUpdate(taskID, serviceName string) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   CreateDestination,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist on %s...", serviceName),
	}
}

func createdPlaylistUpdate(taskID string, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   CreateDestination,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func matchTrackUpdate(taskID string, step, total int, res models.MatchResult) ProgressUpdate {
	mark := "✗"
	if res.Matched() {
		mark = "✓"
	}
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, res.Source.Artist, res.Source.Title),
		Data:    res,
	}
}

func addTracksUpdate(taskID string, count int) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d matched tracks to destination playlist...", count),
	}
}

func finalizeUpdate(taskID string, task *models.SyncTask) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   Finalize,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync %s: %d/%d tracks matched", task.Status, task.MatchedTracks, task.TotalTracks),
		Data:    task.Summary(),
	}
}
