// package tasks implements playlist sync orchestration between music services.
//
// The core abstraction is SyncEngine, which accepts sync requests, drives the
// per-track matching pipeline, and maintains the task state machine through
// its terminal status. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/matcher"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/charmbracelet/log"
)

// SyncRequest describes one playlist sync to run.
type SyncRequest struct {
	UserID           string `json:"user_id"`
	SourcePlaylistID string `json:"source_playlist_id"`

	// DestPlaylistID targets an existing destination playlist. When empty a
	// new playlist is created, named DestPlaylistName or after the source.
	DestPlaylistID   string `json:"destination_playlist_id,omitempty"`
	DestPlaylistName string `json:"destination_playlist_name,omitempty"`

	// IncludeUnavailable keeps unmatched tracks in status responses and
	// reports instead of hiding them.
	IncludeUnavailable bool `json:"include_unavailable_tracks,omitempty"`
}

// Validate checks the request's required fields.
func (r SyncRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrMissingArgument)
	}
	if r.SourcePlaylistID == "" {
		return fmt.Errorf("%w: source_playlist_id is required", shared.ErrMissingArgument)
	}
	return nil
}

// TrackCacher persists tracks seen during syncs for cross-service ISRC lookups.
//
// Tracks are cached silently (errors ignored) to avoid disrupting syncs.
type TrackCacher interface {
	Put(service string, track models.Track) error
	Lookup(service, isrc string) *models.Track
}

// TaskStore persists sync tasks and their history.
type TaskStore interface {
	Create(task *models.SyncTask) error
	Get(id string) (*models.SyncTask, error)
	Update(task *models.SyncTask) error
	ListByUser(userID string, limit int) ([]models.SyncTask, error)
}

// SyncEngine defines operations for syncing playlists between services.
type SyncEngine interface {
	// StartSync accepts a sync request, persists a pending task, and begins
	// processing in the background. The returned task snapshot carries the
	// assigned ID for later Status and Cancel calls.
	StartSync(ctx context.Context, progress chan<- ProgressUpdate, req SyncRequest) (*models.SyncTask, error)

	// Status returns the current state of a task, including per-track results.
	Status(taskID string) (*models.SyncTask, error)

	// History returns a user's sync tasks as summaries, most recent first.
	History(userID string, limit int) ([]models.SyncTask, error)

	// Cancel requests cancellation of a running task. Tracks already
	// processed keep their results; the task lands in the cancelled status.
	Cancel(taskID string) error

	// Wait blocks until all in-flight syncs have finished.
	Wait()
}

// PlaylistSyncEngine implements SyncEngine for one source/destination pair.
type PlaylistSyncEngine struct {
	source  services.Service
	dest    services.Service
	matcher *matcher.Matcher
	store   TaskStore
	cache   TrackCacher
	logger  *log.Logger
	opts    EngineOpts

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// EngineOpts contains configuration for the sync worker pool.
type EngineOpts struct {
	NumWorkers   int     // Concurrent match workers (default: 4, max: 10)
	DispatchRate float64 // Track dispatches per second (default: 5)
}

// NewPlaylistSyncEngine creates a sync engine for the given services.
// The cache may be nil; caching is then skipped.
func NewPlaylistSyncEngine(source, dest services.Service, m *matcher.Matcher, store TaskStore, cache TrackCacher, logger *log.Logger, opts EngineOpts) *PlaylistSyncEngine {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.DispatchRate <= 0 {
		opts.DispatchRate = 5.0
	}
	if logger == nil {
		logger = log.Default()
	}

	return &PlaylistSyncEngine{
		source:  source,
		dest:    dest,
		matcher: m,
		store:   store,
		cache:   cache,
		logger:  logger,
		opts:    opts,
		running: make(map[string]context.CancelFunc),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistSyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// StartSync validates the request, persists a pending task, and launches the
// sync pipeline in the background.
func (e *PlaylistSyncEngine) StartSync(ctx context.Context, progress chan<- ProgressUpdate, req SyncRequest) (*models.SyncTask, error) {
	if e.source == nil || e.dest == nil {
		return nil, fmt.Errorf("%w: sync services not initialized", shared.ErrServiceUnavailable)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := models.NewSyncTask(req.UserID, req.SourcePlaylistID)
	task.DestPlaylistID = req.DestPlaylistID
	task.DestPlaylistName = req.DestPlaylistName
	task.IncludeUnavailable = req.IncludeUnavailable

	if err := e.store.Create(task); err != nil {
		return nil, fmt.Errorf("failed to persist task: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.mu.Lock()
	e.running[task.TaskID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			cancel()
			e.mu.Lock()
			delete(e.running, task.TaskID)
			e.mu.Unlock()
		}()
		e.run(runCtx, progress, task, req)
	}()

	snapshot := task.Summary()
	return &snapshot, nil
}

// Status returns the stored state of a task. Unmatched track results are
// filtered out unless the task was started with IncludeUnavailable.
func (e *PlaylistSyncEngine) Status(taskID string) (*models.SyncTask, error) {
	task, err := e.store.Get(taskID)
	if err != nil {
		return nil, err
	}
	snapshot := task.Snapshot()
	return &snapshot, nil
}

// History returns a user's sync history, most recent first.
func (e *PlaylistSyncEngine) History(userID string, limit int) ([]models.SyncTask, error) {
	return e.store.ListByUser(userID, limit)
}

// Cancel stops a running task. Cancelling a task that already reached a
// terminal status returns models.ErrInvalidState.
func (e *PlaylistSyncEngine) Cancel(taskID string) error {
	task, err := e.store.Get(taskID)
	if err != nil {
		return err
	}
	if task.Terminal() {
		return fmt.Errorf("%w: task %s already %s", models.ErrInvalidState, taskID, task.Status)
	}

	e.mu.Lock()
	cancel, ok := e.running[taskID]
	e.mu.Unlock()

	if ok {
		cancel()
		return nil
	}

	// Not in flight (e.g., process restarted mid-sync); finalize directly.
	if err := task.Cancel(); err != nil {
		return err
	}
	return e.store.Update(task)
}

// Wait blocks until all in-flight syncs have finished.
func (e *PlaylistSyncEngine) Wait() {
	e.wg.Wait()
}
