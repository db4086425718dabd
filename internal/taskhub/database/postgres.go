package database

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

type DB struct {
	Conn   *pgxpool.Pool
	logger *zap.Logger
}

func NewDB(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.New failed")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pool.Ping failed")
	}
	return &DB{Conn: pool, logger: logger.Named("postgres")}, nil
}

func (d *DB) Close() error {
	d.Conn.Close()
	return nil
}

func (d *DB) CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error) {
	row := d.Conn.QueryRow(ctx, "insert into users (user_name, password) values ($1, $2) on conflict (user_name) do nothing returning id", user.UserName, user.Password)
	var id int
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserAlreadyExist
	}
	if err != nil {
		return 0, errors.Wrap(err, "row.Scan failed")
	}
	return id, nil
}

func (d *DB) GetUserByID(ctx context.Context, userID int) (*types.User, error) {
	row := d.Conn.QueryRow(ctx, "select id, user_name, password, tasks_completed from users where id = $1", userID)
	return scanPgUser(row)
}

func (d *DB) GetUserByUserName(ctx context.Context, userName string) (*types.User, error) {
	row := d.Conn.QueryRow(ctx, "select id, user_name, password, tasks_completed from users where user_name = $1", userName)
	return scanPgUser(row)
}

func scanPgUser(row pgx.Row) (*types.User, error) {
	user := &types.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.Password, &user.TasksCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed")
	}
	return user, nil
}

func (d *DB) UpdateTasksCompleted(ctx context.Context, userID, count int) error {
	tag, err := d.Conn.Exec(ctx, "update users set tasks_completed = $2 where id = $1", userID, count)
	if err != nil {
		return errors.Wrap(err, "conn.Exec failed")
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotExist
	}
	return nil
}

func (d *DB) GetTaskSubmissions(ctx context.Context, userID string) ([]types.TaskSubmission, error) {
	rows, err := d.Conn.Query(ctx, "select id, task_id, user_id, status, submitted_at, text, screenshot from task_submissions where user_id = $1 order by submitted_at", userID)
	if err != nil {
		return nil, errors.Wrap(err, "conn.Query failed")
	}
	defer rows.Close()
	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.TaskSubmission])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows failed")
	}
	return result, nil
}

// SubmitTask upserts the single submission of (userID, taskID), a resubmission keeps the row id.
func (d *DB) SubmitTask(ctx context.Context, userID, taskID string, req types.SubmitRequest) (*types.TaskSubmission, error) {
	rows, err := d.Conn.Query(ctx, `insert into task_submissions (id, user_id, task_id, status, text, screenshot)
values ($1, $2, $3, $4, $5, $6)
on conflict (user_id, task_id) do update
set status = excluded.status, submitted_at = now(), text = excluded.text, screenshot = excluded.screenshot
returning id, task_id, user_id, status, submitted_at, text, screenshot`,
		uuid.NewString(), userID, taskID, req.Status, req.Text, req.Screenshot)
	if err != nil {
		return nil, errors.Wrap(err, "conn.Query failed")
	}
	submission, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[types.TaskSubmission])
	if errors.Is(err, pgx.ErrNoRows) {
		d.logger.Warn("submission was not stored", zap.String("user_id", userID), zap.String("task_id", taskID))
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectOneRow failed")
	}
	return submission, nil
}

func (d *DB) GetUserProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	row := d.Conn.QueryRow(ctx, "select user_id, completed_tasks, completed_first_click, visited_tasks, global_attempt_count, fail_attempt_count from user_progress where user_id = $1", userID)
	p := &types.UserProgress{}
	err := row.Scan(&p.UserID, &p.CompletedTasks, &p.CompletedFirstClick, &p.VisitedTasks, &p.GlobalAttemptCount, &p.FailAttemptCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed")
	}
	return p, nil
}

// UpdateUserProgress creates the progress row on first use and overwrites only the fields set in update.
func (d *DB) UpdateUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) error {
	completed, err := marshalFlags(update.CompletedTasks)
	if err != nil {
		return err
	}
	firstClick, err := marshalFlags(update.CompletedFirstClick)
	if err != nil {
		return err
	}
	visited, err := marshalFlags(update.VisitedTasks)
	if err != nil {
		return err
	}
	_, err = d.Conn.Exec(ctx, `insert into user_progress (user_id, completed_tasks, completed_first_click, visited_tasks, global_attempt_count, fail_attempt_count)
values ($1, coalesce($2::jsonb, '{}'::jsonb), coalesce($3::jsonb, '{}'::jsonb), coalesce($4::jsonb, '{}'::jsonb), coalesce($5::integer, 0), coalesce($6::integer, 0))
on conflict (user_id) do update
set completed_tasks       = coalesce($2::jsonb, user_progress.completed_tasks),
    completed_first_click = coalesce($3::jsonb, user_progress.completed_first_click),
    visited_tasks         = coalesce($4::jsonb, user_progress.visited_tasks),
    global_attempt_count  = coalesce($5::integer, user_progress.global_attempt_count),
    fail_attempt_count    = coalesce($6::integer, user_progress.fail_attempt_count)`,
		userID, completed, firstClick, visited, update.GlobalAttemptCount, update.FailAttemptCount)
	if err != nil {
		return errors.Wrap(err, "conn.Exec failed")
	}
	return nil
}
