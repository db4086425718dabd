package database

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/taskhub/config"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// Store is implemented by every storage driver.
type Store interface {
	CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error)
	GetUserByID(ctx context.Context, userID int) (*types.User, error)
	GetUserByUserName(ctx context.Context, userName string) (*types.User, error)
	UpdateTasksCompleted(ctx context.Context, userID, count int) error

	GetTaskSubmissions(ctx context.Context, userID string) ([]types.TaskSubmission, error)
	GetUserProgress(ctx context.Context, userID string) (*types.UserProgress, error)
	SubmitTask(ctx context.Context, userID, taskID string, req types.SubmitRequest) (*types.TaskSubmission, error)
	UpdateUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) error

	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLite)(nil)
)

func NewStore(ctx context.Context, cfg config.Storage, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := NewDB(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, errors.Wrap(err, "NewDB failed")
		}
		return db, nil
	case config.DriverSQLite:
		db, err := NewSQLite(cfg.Path, logger)
		if err != nil {
			return nil, errors.Wrap(err, "NewSQLite failed")
		}
		return db, nil
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "driver %q", cfg.Driver)
	}
}

// marshalFlags returns nil for a nil map so that the column is left untouched.
func marshalFlags(flags map[string]bool) ([]byte, error) {
	if flags == nil {
		return nil, nil
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal failed")
	}
	return b, nil
}
