package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/matcher"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/repositories"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	appleMusic services.Service
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service
	AppleMusic services.Service
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		appleMusic: opts.AppleMusic,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, spotifyCommand, applemusicCommand, syncCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the configured sqlite database. Callers own the handle.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// newTaskStore builds the task repository over an open database handle.
func (r *Runner) newTaskStore(db *sql.DB) *repositories.TaskRepository {
	return repositories.NewTaskRepository(db)
}

// buildEngine assembles the sync engine over an open database handle.
func (r *Runner) buildEngine(db *sql.DB) (*tasks.PlaylistSyncEngine, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if r.appleMusic == nil {
		return nil, fmt.Errorf("%w: Apple Music service not initialized", shared.ErrServiceUnavailable)
	}

	m := matcher.New(matcher.Config{
		FuzzyThreshold:    r.config.Matcher.FuzzyThreshold,
		DurationTolerance: r.config.Matcher.DurationTolerance(),
	})

	store := repositories.NewTaskRepository(db)
	cache := repositories.NewTrackCache(repositories.NewTrackRepository(db))

	return tasks.NewPlaylistSyncEngine(r.spotify, r.appleMusic, m, store, cache, r.logger, tasks.EngineOpts{
		NumWorkers:   r.config.Sync.Workers,
		DispatchRate: r.config.Sync.DispatchRate,
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
