package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/SakuraBurst/taskhub/internal/taskhub/database/migrations"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// SQLite is the embedded storage driver, the schema is migrated on open.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sqlite")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll failed")
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}

	migrator, err := migrations.NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrations.NewMigrator failed")
	}
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrator.Up failed")
	}
	logger.Debug("sqlite store initialized", zap.String("path", path))
	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (user_name, password) VALUES (?, ?)", user.UserName, user.Password)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.user_name") {
			return 0, ErrUserAlreadyExist
		}
		return 0, errors.Wrap(err, "db.ExecContext failed")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "res.LastInsertId failed")
	}
	return int(id), nil
}

func (s *SQLite) GetUserByID(ctx context.Context, userID int) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, user_name, password, tasks_completed FROM users WHERE id = ?", userID)
	return scanSQLUser(row)
}

func (s *SQLite) GetUserByUserName(ctx context.Context, userName string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, user_name, password, tasks_completed FROM users WHERE user_name = ?", userName)
	return scanSQLUser(row)
}

func scanSQLUser(row *sql.Row) (*types.User, error) {
	user := &types.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.Password, &user.TasksCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed")
	}
	return user, nil
}

func (s *SQLite) UpdateTasksCompleted(ctx context.Context, userID, count int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET tasks_completed = ? WHERE id = ?", count, userID)
	if err != nil {
		return errors.Wrap(err, "db.ExecContext failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "res.RowsAffected failed")
	}
	if n == 0 {
		return ErrUserNotExist
	}
	return nil
}

const submissionColumns = "id, task_id, user_id, status, submitted_at, text, screenshot"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (types.TaskSubmission, error) {
	var (
		sub         types.TaskSubmission
		status      string
		submittedAt int64
	)
	if err := row.Scan(&sub.ID, &sub.TaskID, &sub.UserID, &status, &submittedAt, &sub.Text, &sub.Screenshot); err != nil {
		return types.TaskSubmission{}, err
	}
	sub.Status = types.SubmissionStatus(status)
	sub.SubmittedAt = time.UnixMilli(submittedAt).UTC()
	return sub, nil
}

func (s *SQLite) GetTaskSubmissions(ctx context.Context, userID string) ([]types.TaskSubmission, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+submissionColumns+" FROM task_submissions WHERE user_id = ? ORDER BY submitted_at, rowid", userID)
	if err != nil {
		return nil, errors.Wrap(err, "db.QueryContext failed")
	}
	defer rows.Close()

	result := []types.TaskSubmission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, "rows.Scan failed")
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows.Err")
	}
	return result, nil
}

// SubmitTask upserts the single submission of (userID, taskID), a resubmission keeps the row id.
func (s *SQLite) SubmitTask(ctx context.Context, userID, taskID string, req types.SubmitRequest) (*types.TaskSubmission, error) {
	row := s.db.QueryRowContext(ctx, `INSERT INTO task_submissions (id, user_id, task_id, status, submitted_at, text, screenshot)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, task_id) DO UPDATE
SET status = excluded.status, submitted_at = excluded.submitted_at, text = excluded.text, screenshot = excluded.screenshot
RETURNING `+submissionColumns,
		uuid.NewString(), userID, taskID, string(req.Status), s.now().UnixMilli(), req.Text, req.Screenshot)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("submission was not stored", zap.String("user_id", userID), zap.String("task_id", taskID))
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed")
	}
	return &sub, nil
}

func (s *SQLite) GetUserProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id, completed_tasks, completed_first_click, visited_tasks, global_attempt_count, fail_attempt_count
FROM user_progress WHERE user_id = ?`, userID)
	var (
		p                              types.UserProgress
		completed, firstClick, visited string
	)
	err := row.Scan(&p.UserID, &completed, &firstClick, &visited, &p.GlobalAttemptCount, &p.FailAttemptCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed")
	}
	for _, f := range []struct {
		raw string
		dst *map[string]bool
	}{
		{completed, &p.CompletedTasks},
		{firstClick, &p.CompletedFirstClick},
		{visited, &p.VisitedTasks},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	}
	return &p, nil
}

// UpdateUserProgress creates the progress row on first use and overwrites only the fields set in update.
func (s *SQLite) UpdateUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) error {
	var args [3]any
	for i, flags := range []map[string]bool{update.CompletedTasks, update.CompletedFirstClick, update.VisitedTasks} {
		b, err := marshalFlags(flags)
		if err != nil {
			return err
		}
		if b != nil {
			args[i] = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_progress (user_id, completed_tasks, completed_first_click, visited_tasks, global_attempt_count, fail_attempt_count)
VALUES (?1, coalesce(?2, '{}'), coalesce(?3, '{}'), coalesce(?4, '{}'), coalesce(?5, 0), coalesce(?6, 0))
ON CONFLICT (user_id) DO UPDATE
SET completed_tasks       = coalesce(?2, completed_tasks),
    completed_first_click = coalesce(?3, completed_first_click),
    visited_tasks         = coalesce(?4, visited_tasks),
    global_attempt_count  = coalesce(?5, global_attempt_count),
    fail_attempt_count    = coalesce(?6, fail_attempt_count)`,
		userID, args[0], args[1], args[2], nullableInt(update.GlobalAttemptCount), nullableInt(update.FailAttemptCount))
	if err != nil {
		return errors.Wrap(err, "db.ExecContext failed")
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
