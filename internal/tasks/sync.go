package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"golang.org/x/time/rate"
)

// run drives one sync task from in_progress to a terminal status. All task
// mutation happens on this goroutine; workers only report match results.
func (e *PlaylistSyncEngine) run(ctx context.Context, progress chan<- ProgressUpdate, task *models.SyncTask, req SyncRequest) {
	logger := e.logger.With("task", task.TaskID, "source", task.SourcePlaylistID)

	if err := task.Start(); err != nil {
		logger.Error("failed to start task", "error", err)
		return
	}
	e.persist(task, logger)

	e.sendProgress(progress, fetchingSourceUpdate(task.TaskID, e.source.Name()))

	export, err := e.source.ExportPlaylist(ctx, req.SourcePlaylistID)
	if err != nil {
		e.fail(task, progress, logger, fmt.Sprintf("failed to export source playlist: %v", err))
		return
	}

	task.SourcePlaylistName = export.Playlist.Name
	task.TotalTracks = len(export.Tracks)
	e.persist(task, logger)
	e.sendProgress(progress, foundPlaylistUpdate(task.TaskID, export))

	e.cacheTracks(e.source.Name(), export.Tracks)

	if task.DestPlaylistID == "" {
		name := req.DestPlaylistName
		if name == "" {
			name = export.Playlist.Name
		}

		e.sendProgress(progress, createDestinationUpdate(task.TaskID, e.dest.Name()))
		created, err := e.dest.CreatePlaylist(ctx, name, fmt.Sprintf("Synced from %s: %s", e.source.Name(), export.Playlist.Name))
		if err != nil {
			e.fail(task, progress, logger, fmt.Sprintf("failed to create destination playlist: %v", err))
			return
		}

		task.DestPlaylistID = created.ID
		task.DestPlaylistName = created.Name
		e.persist(task, logger)
		e.sendProgress(progress, createdPlaylistUpdate(task.TaskID, created))
	}

	if task.TotalTracks == 0 {
		e.finalize(task, progress, logger)
		return
	}

	results, processed, recorded := e.matchTracks(ctx, progress, task, export.Tracks, logger)

	if ctx.Err() != nil {
		e.cancelWithPartialResults(task, progress, logger, results, processed, recorded)
		return
	}

	e.addMatched(ctx, progress, task, logger)
	e.finalize(task, progress, logger)
}

// matchTracks resolves every source track against the destination using a
// bounded worker pool. Dispatch is paced so concurrent workers cannot burst
// past the provider budget. Results are recorded on the task in source order
// as the completed prefix grows, each with a persist, so a status poll during
// the sync sees live counters. The returned processed slice marks which
// indexes finished before cancellation; recorded is how many of them made it
// onto the task.
func (e *PlaylistSyncEngine) matchTracks(ctx context.Context, progress chan<- ProgressUpdate, task *models.SyncTask, tracks []models.Track, logger logSink) ([]models.MatchResult, []bool, int) {
	total := len(tracks)
	results := make([]models.MatchResult, total)
	processed := make([]bool, total)

	limiter := rate.NewLimiter(rate.Limit(e.opts.DispatchRate), 1)
	jobs := make(chan int, total)
	finished := make(chan int, total)

	var completed atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < e.opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.matchOne(ctx, tracks[i])
				processed[i] = true
				step := int(completed.Add(1))
				e.sendProgress(progress, matchTrackUpdate(task.TaskID, step, total, results[i]))
				finished <- i
			}
		}()
	}

	go func() {
		for i := range tracks {
			if ctx.Err() != nil {
				break
			}
			if err := limiter.Wait(ctx); err != nil {
				break
			}
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(finished)
	}()

	// Completion signals arrive out of order; only record the contiguous
	// prefix so task.Results keeps source playlist order.
	done := make([]bool, total)
	recorded := 0
	for i := range finished {
		done[i] = true
		advanced := false
		for recorded < total && done[recorded] {
			if err := task.RecordResult(results[recorded]); err != nil {
				logger.Error("failed to record result", "track", results[recorded].Source.Title, "error", err)
			}
			recorded++
			advanced = true
		}
		if advanced {
			e.persist(task, logger)
		}
	}

	return results, processed, recorded
}

// matchOne consults the track cache before spending destination quota on a
// full match, and feeds both sides of a successful match back into the cache.
func (e *PlaylistSyncEngine) matchOne(ctx context.Context, track models.Track) models.MatchResult {
	if e.cache != nil && track.ISRC != "" {
		if hit := e.cache.Lookup(e.dest.Name(), track.ISRC); hit != nil {
			return models.MatchResult{
				Source:      track,
				Destination: hit,
				Strategy:    models.StrategyISRC,
				Confidence:  1.0,
			}
		}
	}

	result := e.matcher.Match(ctx, track, e.dest)

	if e.cache != nil && result.Matched() {
		e.cache.Put(e.dest.Name(), *result.Destination)
	}

	return result
}

// addMatched pushes matched destination tracks to the playlist in source
// order. An add failure demotes the affected recorded results to unmatched
// so the final report reflects what actually landed in the playlist.
func (e *PlaylistSyncEngine) addMatched(ctx context.Context, progress chan<- ProgressUpdate, task *models.SyncTask, logger logSink) {
	var ids []string
	var indexes []int
	for i := range task.Results {
		if task.Results[i].Matched() {
			ids = append(ids, task.Results[i].Destination.ID)
			indexes = append(indexes, i)
		}
	}
	if len(ids) == 0 {
		return
	}

	e.sendProgress(progress, addTracksUpdate(task.TaskID, len(ids)))

	addResults, err := e.dest.AddTracks(ctx, task.DestPlaylistID, ids)
	if err != nil {
		for _, i := range indexes {
			e.demote(task, i, fmt.Sprintf("failed to add track: %v", err), logger)
		}
		return
	}

	for pos, ar := range addResults {
		if pos >= len(indexes) {
			break
		}
		if ar.Err != nil {
			e.demote(task, indexes[pos], fmt.Sprintf("failed to add track: %v", ar.Err), logger)
		}
	}
}

func (e *PlaylistSyncEngine) demote(task *models.SyncTask, index int, reason string, logger logSink) {
	if err := task.DemoteResult(index, reason); err != nil {
		logger.Error("failed to demote result", "index", index, "error", err)
	}
}

// cacheTracks best-effort persists a batch of tracks; failures are ignored.
func (e *PlaylistSyncEngine) cacheTracks(service string, tracks []models.Track) {
	if e.cache == nil {
		return
	}
	for _, track := range tracks {
		e.cache.Put(service, track)
	}
}

// cancelWithPartialResults finalizes a cancelled task. Results up to recorded
// are already on the task; processed tracks past the first gap are flushed
// here so nothing the workers finished is lost.
func (e *PlaylistSyncEngine) cancelWithPartialResults(task *models.SyncTask, progress chan<- ProgressUpdate, logger logSink, results []models.MatchResult, processed []bool, recorded int) {
	for i := recorded; i < len(results); i++ {
		if !processed[i] {
			continue
		}
		if err := task.RecordResult(results[i]); err != nil {
			logger.Error("failed to record result", "track", results[i].Source.Title, "error", err)
		}
	}
	if err := task.Cancel(); err != nil {
		logger.Error("failed to cancel task", "error", err)
	}
	e.persist(task, logger)
	e.sendProgress(progress, finalizeUpdate(task.TaskID, task))
	logger.Info("sync cancelled", "processed", task.ProcessedTracks, "total", task.TotalTracks)
}

func (e *PlaylistSyncEngine) fail(task *models.SyncTask, progress chan<- ProgressUpdate, logger logSink, msg string) {
	if err := task.Fail(msg); err != nil {
		logger.Error("failed to mark task failed", "error", err)
	}
	e.persist(task, logger)
	e.sendProgress(progress, finalizeUpdate(task.TaskID, task))
	logger.Error("sync failed", "reason", msg)
}

func (e *PlaylistSyncEngine) finalize(task *models.SyncTask, progress chan<- ProgressUpdate, logger logSink) {
	if err := task.Complete(); err != nil {
		logger.Error("failed to complete task", "error", err)
	}
	e.persist(task, logger)
	e.sendProgress(progress, finalizeUpdate(task.TaskID, task))
	logger.Info("sync finished",
		"status", task.Status,
		"matched", task.MatchedTracks,
		"failed", task.FailedTracks,
		"total", task.TotalTracks)
}

func (e *PlaylistSyncEngine) persist(task *models.SyncTask, logger logSink) {
	if err := e.store.Update(task); err != nil {
		logger.Error("failed to persist task", "error", err)
	}
}

// logSink is the subset of *log.Logger the pipeline uses, extracted so helper
// signatures stay short.
type logSink interface {
	Info(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}
