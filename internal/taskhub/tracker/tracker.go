package tracker

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SakuraBurst/taskhub/internal/taskhub/catalog"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// RemoteStore is the persistence contract the tracker synchronizes with.
type RemoteStore interface {
	GetTaskSubmissions(ctx context.Context, userID string) ([]types.TaskSubmission, error)
	// GetUserProgress returns nil, nil when the user has no progress record yet.
	GetUserProgress(ctx context.Context, userID string) (*types.UserProgress, error)
	// SubmitTask returns a nil submission when the store rejected it.
	SubmitTask(ctx context.Context, userID, taskID string, req types.SubmitRequest) (*types.TaskSubmission, error)
	UpdateUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) error
}

// Session is the authenticated user collaborator holding the user aggregate record.
type Session interface {
	UpdateTasksCompleted(ctx context.Context, userID string, count int) error
	RefreshUser(ctx context.Context, userID string) error
}

type Config struct {
	Store   RemoteStore
	Session Session
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

func (c *Config) defaults() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Session == nil {
		return errors.New("session is required")
	}
	if c.Catalog == nil {
		return errors.New("catalog is required")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}

// Tracker mirrors one user's progress and submissions in memory and writes every
// local change through to the remote store. Local changes are never rolled back,
// a failed write is reconciled by the next full reload.
type Tracker struct {
	store   RemoteStore
	session Session
	catalog *catalog.Catalog
	logger  *zap.Logger

	mu sync.RWMutex
	// generation changes with every user transition so that a reload started
	// for a previous user never lands in the caches of the current one.
	generation          uint64
	userID              string
	submissions         []types.TaskSubmission
	completedTasks      map[string]bool
	completedFirstClick map[string]bool
	visitedTasks        map[string]bool
	globalAttemptCount  int
	failAttemptCount    int
}

func New(cfg Config) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	t := &Tracker{
		store:   cfg.Store,
		session: cfg.Session,
		catalog: cfg.Catalog,
		logger:  cfg.Logger.Named("tracker"),
	}
	t.resetLocked()
	return t, nil
}

// SetUser reacts to the authenticated identity. An empty userID means logged out:
// every cache is reset before SetUser returns. A new user triggers a full reload.
func (t *Tracker) SetUser(ctx context.Context, userID string) {
	t.mu.Lock()
	if userID == t.userID {
		t.mu.Unlock()
		return
	}
	t.userID = userID
	t.generation++
	gen := t.generation
	t.resetLocked()
	t.mu.Unlock()

	if userID == "" {
		t.logger.Debug("user logged out, state reset")
		return
	}
	if err := t.load(ctx, userID, gen); err != nil {
		t.logger.Error("loading user data failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Refresh reloads the remote state of the current user and re-fetches the user identity.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.RLock()
	userID, gen := t.userID, t.generation
	t.mu.RUnlock()
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := t.load(ctx, userID, gen); err != nil {
		t.logger.Error("loading user data failed", zap.String("user_id", userID), zap.Error(err))
	}
	if err := t.session.RefreshUser(ctx, userID); err != nil {
		return errors.Wrap(err, "session.RefreshUser failed")
	}
	return nil
}

func (t *Tracker) load(ctx context.Context, userID string, gen uint64) error {
	var (
		submissions []types.TaskSubmission
		progress    *types.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := t.store.GetTaskSubmissions(gctx, userID)
		if err != nil {
			return errors.Wrap(err, "store.GetTaskSubmissions failed")
		}
		submissions = s
		return nil
	})
	g.Go(func() error {
		p, err := t.store.GetUserProgress(gctx, userID)
		if err != nil {
			return errors.Wrap(err, "store.GetUserProgress failed")
		}
		progress = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.generation != gen {
		t.logger.Debug("dropping reload for a stale session", zap.String("user_id", userID))
		return nil
	}
	t.submissions = append([]types.TaskSubmission(nil), submissions...)
	if progress != nil {
		t.completedTasks = copyFlags(progress.CompletedTasks)
		t.completedFirstClick = copyFlags(progress.CompletedFirstClick)
		t.visitedTasks = copyFlags(progress.VisitedTasks)
		t.globalAttemptCount = progress.GlobalAttemptCount
		t.failAttemptCount = progress.FailAttemptCount
	}
	return nil
}

func (t *Tracker) resetLocked() {
	t.submissions = []types.TaskSubmission{}
	t.completedTasks = map[string]bool{}
	t.completedFirstClick = map[string]bool{}
	t.visitedTasks = map[string]bool{}
	t.globalAttemptCount = 0
	t.failAttemptCount = 0
}

func (t *Tracker) UserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.userID
}

func (t *Tracker) Tasks() []types.Task {
	return t.catalog.All()
}

func (t *Tracker) GetTaskByID(id string) (types.Task, bool) {
	return t.catalog.GetTaskByID(id)
}

func (t *Tracker) Submissions() []types.TaskSubmission {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]types.TaskSubmission(nil), t.submissions...)
}

func (t *Tracker) GetUserTaskSubmission(taskID string) (types.TaskSubmission, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.submissions {
		if s.TaskID == taskID {
			return s, true
		}
	}
	return types.TaskSubmission{}, false
}

// Snapshot is a point in time copy of every cache of a tracker.
type Snapshot struct {
	UserID              string                 `json:"user_id"`
	Submissions         []types.TaskSubmission `json:"submissions"`
	CompletedTasks      map[string]bool        `json:"completed_tasks"`
	CompletedFirstClick map[string]bool        `json:"completed_first_click"`
	VisitedTasks        map[string]bool        `json:"visited_tasks"`
	GlobalAttemptCount  int                    `json:"global_attempt_count"`
	FailAttemptCount    int                    `json:"fail_attempt_count"`
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		UserID:              t.userID,
		Submissions:         append([]types.TaskSubmission{}, t.submissions...),
		CompletedTasks:      copyFlags(t.completedTasks),
		CompletedFirstClick: copyFlags(t.completedFirstClick),
		VisitedTasks:        copyFlags(t.visitedTasks),
		GlobalAttemptCount:  t.globalAttemptCount,
		FailAttemptCount:    t.failAttemptCount,
	}
}

func copyFlags(m map[string]bool) map[string]bool {
	result := make(map[string]bool, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func withFlag(m map[string]bool, key string, value bool) map[string]bool {
	result := copyFlags(m)
	result[key] = value
	return result
}
