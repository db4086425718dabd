package tracker

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

var ErrNotAuthenticated = errors.New("user is not authenticated")

// Registry owns one Tracker per logged in user.
type Registry struct {
	cfg      Config
	logger   *zap.Logger
	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.defaults(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Registry{
		cfg:      cfg,
		logger:   cfg.Logger.Named("registry"),
		trackers: make(map[string]*Tracker),
	}, nil
}

// Login returns the tracker of userID, creating and loading it on first use.
func (r *Registry) Login(ctx context.Context, userID string) (*Tracker, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	r.mu.Lock()
	t, ok := r.trackers[userID]
	if ok {
		r.mu.Unlock()
		return t, nil
	}
	t, err := New(r.cfg)
	if err != nil {
		r.mu.Unlock()
		return nil, errors.Wrap(err, "tracker.New failed")
	}
	r.trackers[userID] = t
	r.mu.Unlock()

	r.logger.Info("user session opened", zap.String("user_id", userID))
	t.SetUser(ctx, userID)
	return t, nil
}

func (r *Registry) Get(userID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[userID]
	return t, ok
}

// Logout drops the tracker of userID after resetting its caches.
func (r *Registry) Logout(ctx context.Context, userID string) {
	r.mu.Lock()
	t, ok := r.trackers[userID]
	delete(r.trackers, userID)
	r.mu.Unlock()
	if !ok {
		return
	}
	t.SetUser(ctx, "")
	r.logger.Info("user session closed", zap.String("user_id", userID))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
