package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
)

// TaskRepository implements models.Repository[*models.SyncTask] for sync history.
//
// Match results are stored as a JSON column so a completed task can be
// reloaded with its full per-track report. Listings return summaries only
// (results omitted) to keep history queries cheap.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, sequence, user_id, status, source_playlist_id, source_playlist_name,
	dest_playlist_id, dest_playlist_name, total_tracks, processed_tracks, matched_tracks,
	failed_tracks, include_unavailable, results, error_message, created_at, updated_at, completed_at, deleted_at`

// Create inserts a new [models.SyncTask] with generated ID and sequence
func (r *TaskRepository) Create(task *models.SyncTask) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if task.TaskID == "" {
		task.SetID(shared.GenerateID())
	}
	task.Sequence = sequence

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	results, err := marshalResults(task.Results)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		task.TaskID,
		task.Sequence,
		task.UserID,
		string(task.Status),
		task.SourcePlaylistID,
		task.SourcePlaylistName,
		task.DestPlaylistID,
		task.DestPlaylistName,
		task.TotalTracks,
		task.ProcessedTracks,
		task.MatchedTracks,
		task.FailedTracks,
		task.IncludeUnavailable,
		results,
		task.ErrorMessage,
		task.Created,
		task.Updated,
		task.Completed,
		task.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID with its full results, excluding soft-deleted tasks
func (r *TaskRepository) Get(id string) (*models.SyncTask, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`
	return scanTask(r.db.QueryRow(query, id))
}

// Update persists the task's mutable state. The full row is rewritten since
// the engine owns all mutation.
func (r *TaskRepository) Update(task *models.SyncTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	results, err := marshalResults(task.Results)
	if err != nil {
		return err
	}

	task.SetUpdatedAt(time.Now())

	query := `
		UPDATE tasks
		SET status = ?, dest_playlist_id = ?, dest_playlist_name = ?,
			total_tracks = ?, processed_tracks = ?, matched_tracks = ?, failed_tracks = ?,
			include_unavailable = ?, results = ?, error_message = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(task.Status),
		task.DestPlaylistID,
		task.DestPlaylistName,
		task.TotalTracks,
		task.ProcessedTracks,
		task.MatchedTracks,
		task.FailedTracks,
		task.IncludeUnavailable,
		results,
		task.ErrorMessage,
		task.Updated,
		task.Completed,
		task.TaskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.TaskID)
	}

	return nil
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(id string) error {
	query := `
		UPDATE tasks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	return nil
}

// List retrieves tasks matching the given criteria, most recent first,
// excluding soft-deleted tasks. Results columns are loaded; use ListByUser
// for cheap history summaries.
func (r *TaskRepository) List(criteria map[string]any) ([]*models.SyncTask, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.SyncTask
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// ListByUser returns a user's sync history as summaries, most recent first.
func (r *TaskRepository) ListByUser(userID string, limit int) ([]models.SyncTask, error) {
	tasks, err := r.List(map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SyncTask, 0, len(tasks))
	for _, task := range tasks {
		summaries = append(summaries, task.Summary())
	}
	return summaries, nil
}

func marshalResults(results []models.MatchResult) (sql.NullString, error) {
	if len(results) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode results: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskFrom(s rowScanner) (*models.SyncTask, error) {
	var (
		task        models.SyncTask
		status      string
		sourceName  sql.NullString
		destID      sql.NullString
		destName    sql.NullString
		results     sql.NullString
		errMessage  sql.NullString
		completedAt sql.NullTime
		deletedAt   sql.NullTime
	)

	err := s.Scan(
		&task.TaskID,
		&task.Sequence,
		&task.UserID,
		&status,
		&task.SourcePlaylistID,
		&sourceName,
		&destID,
		&destName,
		&task.TotalTracks,
		&task.ProcessedTracks,
		&task.MatchedTracks,
		&task.FailedTracks,
		&task.IncludeUnavailable,
		&results,
		&errMessage,
		&task.Created,
		&task.Updated,
		&completedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = models.SyncStatus(status)
	task.SourcePlaylistName = sourceName.String
	task.DestPlaylistID = destID.String
	task.DestPlaylistName = destName.String
	task.ErrorMessage = errMessage.String
	if completedAt.Valid {
		task.Completed = &completedAt.Time
	}
	if deletedAt.Valid {
		task.DeletedAt = &deletedAt.Time
	}

	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &task.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	}

	return &task, nil
}

func scanTask(row *sql.Row) (*models.SyncTask, error) {
	task, err := scanTaskFrom(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

func scanTaskRow(rows *sql.Rows) (*models.SyncTask, error) {
	task, err := scanTaskFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}
