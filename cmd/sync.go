package main

import (
	"context"
	"fmt"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/formatter"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun runs a full Spotify to Apple Music playlist sync, streaming
// progress to the terminal and waiting for the terminal status.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.String("source")
	destID := cmd.String("dest")
	destName := cmd.String("name")
	userID := cmd.String("user")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.buildEngine(db)
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "source", sourceID, "dest", destID)
	r.writePlain("Starting playlist sync...\n")
	r.writePlain("Source: %s\n\n", sourceID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CreateDestination:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.MatchTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.AddTracks:
				r.writePlain("\n➕ %s\n", update.Message)
			case tasks.Finalize:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	task, err := engine.StartSync(ctx, progressCh, tasks.SyncRequest{
		UserID:             userID,
		SourcePlaylistID:   sourceID,
		DestPlaylistID:     destID,
		DestPlaylistName:   destName,
		IncludeUnavailable: cmd.Bool("include-unavailable"),
	})
	if err != nil {
		close(progressCh)
		<-done
		return err
	}

	engine.Wait()
	close(progressCh)
	<-done

	final, err := engine.Status(task.TaskID)
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync " + string(final.Status))
	r.writePlain("Task: %s\n", final.TaskID)
	r.writePlain("Source: %s (%d tracks)\n", final.SourcePlaylistName, final.TotalTracks)
	if final.DestPlaylistID != "" {
		r.writePlain("Destination: %s (%s)\n", final.DestPlaylistName, final.DestPlaylistID)
	}
	r.writePlain("Matched: %d/%d\n", final.MatchedTracks, final.TotalTracks)

	if final.ErrorMessage != "" {
		r.writePlain("Error: %s\n", final.ErrorMessage)
	}

	if final.FailedTracks > 0 {
		r.writePlain("\nFailed to match %d tracks:\n", final.FailedTracks)
		for _, res := range final.Results {
			if !res.Matched() {
				r.writePlain("  - %s - %s\n", res.Source.Artist, res.Source.Title)
			}
		}
		r.writePlain("\nRun 'spamsync sync report %s' for the full breakdown.\n", final.TaskID)
	}

	return nil
}

// SyncStatus shows the state of one sync task.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task_id")
	useJSON := cmd.Bool("json")

	task, err := r.loadTask(taskID)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(task, true)
	}

	r.writePlain("Task: %s\n", task.TaskID)
	r.writePlain("Status: %s\n", task.Status)
	r.writePlain("Source: %s (%s)\n", task.SourcePlaylistName, task.SourcePlaylistID)
	if task.DestPlaylistID != "" {
		r.writePlain("Destination: %s (%s)\n", task.DestPlaylistName, task.DestPlaylistID)
	}
	r.writePlain("Progress: %d/%d processed, %d matched, %d failed\n",
		task.ProcessedTracks, task.TotalTracks, task.MatchedTracks, task.FailedTracks)
	if task.ErrorMessage != "" {
		r.writePlain("Error: %s\n", task.ErrorMessage)
	}

	return nil
}

// SyncHistory lists a user's past sync tasks, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := r.newTaskStore(db)
	history, err := store.ListByUser(userID, limit)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(history, true)
	}

	if len(history) == 0 {
		return r.writePlain("No sync tasks for user %s.\n", userID)
	}

	r.writePlain("Found %d sync tasks:\n\n", len(history))
	for i, task := range history {
		r.writePlain("%d. %s [%s]\n", i+1, task.TaskID, task.Status)
		r.writePlain("   %s → %s\n", task.SourcePlaylistName, task.DestPlaylistName)
		r.writePlain("   Matched %d/%d, started %s\n\n",
			task.MatchedTracks, task.TotalTracks, task.Created.Format("2006-01-02 15:04"))
	}

	return nil
}

// SyncReport writes a per-track report for a finished sync task.
func (r *Runner) SyncReport(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task_id")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	task, err := r.loadTask(taskID)
	if err != nil {
		return err
	}

	written, err := formatter.WriteReport(task, format, outputPath)
	if err != nil {
		return err
	}

	r.writePlain("✓ Report written to %s\n", written)
	return nil
}

// SyncCancel cancels a pending or running sync task.
func (r *Runner) SyncCancel(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task_id")
	if taskID == "" {
		return fmt.Errorf("%w: task_id argument is required", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := r.newTaskStore(db)
	task, err := store.Get(taskID)
	if err != nil {
		return err
	}

	if task.Terminal() {
		return fmt.Errorf("%w: task %s already %q", models.ErrInvalidState, task.TaskID, task.Status)
	}

	if err := task.Cancel(); err != nil {
		return err
	}
	if err := store.Update(task); err != nil {
		return err
	}

	r.writePlain("✓ Task %s cancelled\n", taskID)
	return nil
}

// loadTask fetches one task from the configured database.
func (r *Runner) loadTask(taskID string) (*models.SyncTask, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task_id argument is required", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	task, err := r.newTaskStore(db).Get(taskID)
	if err != nil {
		return nil, err
	}
	snapshot := task.Snapshot()
	return &snapshot, nil
}
