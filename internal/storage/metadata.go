package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// ErrNotFound is returned when a task is not in the history
var ErrNotFound = errors.New("task not found in history")

// TaskDB keeps terminal task records in SQLite
type TaskDB struct {
	db *sql.DB
}

// NewTaskDB opens (and creates if needed) the task history database
func NewTaskDB(dbPath string) (*TaskDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		message TEXT,
		error TEXT,
		result_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &TaskDB{db: db}, nil
}

// SaveTask inserts or replaces a task snapshot
func (tdb *TaskDB) SaveTask(ctx context.Context, task types.Task) error {
	var resultJSON sql.NullString
	if task.Result != nil {
		b, err := json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
	INSERT INTO tasks (task_id, video_url, status, progress, message, error, result_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(task_id) DO UPDATE SET
		status = excluded.status,
		progress = excluded.progress,
		message = excluded.message,
		error = excluded.error,
		result_json = excluded.result_json,
		updated_at = excluded.updated_at
	`

	_, err := tdb.db.ExecContext(ctx, query,
		task.ID, task.VideoURL, task.Status, task.Progress, task.Message, task.Error, resultJSON,
		task.CreatedAt.UTC().Format(time.RFC3339Nano), task.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

const selectTask = `
	SELECT task_id, video_url, status, progress, message, error, result_json, created_at, updated_at
	FROM tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var (
		task                 types.Task
		message, errText     sql.NullString
		resultJSON           sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&task.ID, &task.VideoURL, &task.Status, &task.Progress,
		&message, &errText, &resultJSON, &createdAt, &updatedAt); err != nil {
		return types.Task{}, err
	}
	task.Message = message.String
	task.Error = errText.String
	task.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	task.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	if resultJSON.Valid && resultJSON.String != "" {
		var res types.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err != nil {
			return types.Task{}, fmt.Errorf("failed to decode result of %s: %w", task.ID, err)
		}
		task.Result = &res
	}
	return task, nil
}

// GetTask retrieves a task by id
func (tdb *TaskDB) GetTask(ctx context.Context, id string) (types.Task, error) {
	task, err := scanTask(tdb.db.QueryRowContext(ctx, selectTask+` WHERE task_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Task{}, ErrNotFound
	}
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns the most recent tasks first
func (tdb *TaskDB) ListTasks(ctx context.Context, limit int) ([]types.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := tdb.db.QueryContext(ctx, selectTask+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []types.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Close closes the database connection
func (tdb *TaskDB) Close() error {
	return tdb.db.Close()
}
