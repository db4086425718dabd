package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// Every update below replaces the cached value with a fresh copy, so a map handed
// to the store is never mutated afterwards.

func (t *Tracker) UpdateCompletedTasks(ctx context.Context, taskID string, completed bool) {
	t.mu.Lock()
	next := withFlag(t.completedTasks, taskID, completed)
	t.completedTasks = next
	userID := t.userID
	t.mu.Unlock()

	t.saveUserProgress(ctx, userID, types.ProgressUpdate{CompletedTasks: next})
}

func (t *Tracker) UpdateCompletedFirstClick(ctx context.Context, taskID string, clicked bool) {
	t.mu.Lock()
	next := withFlag(t.completedFirstClick, taskID, clicked)
	t.completedFirstClick = next
	userID := t.userID
	t.mu.Unlock()

	t.saveUserProgress(ctx, userID, types.ProgressUpdate{CompletedFirstClick: next})
}

func (t *Tracker) UpdateVisitedTasks(ctx context.Context, taskID string, visited bool) {
	t.mu.Lock()
	next := withFlag(t.visitedTasks, taskID, visited)
	t.visitedTasks = next
	userID := t.userID
	t.mu.Unlock()

	t.saveUserProgress(ctx, userID, types.ProgressUpdate{VisitedTasks: next})
}

func (t *Tracker) IncrementGlobalAttemptCount(ctx context.Context) {
	t.mu.Lock()
	t.globalAttemptCount++
	count := t.globalAttemptCount
	userID := t.userID
	t.mu.Unlock()

	t.saveUserProgress(ctx, userID, types.ProgressUpdate{GlobalAttemptCount: &count})
}

func (t *Tracker) IncrementFailAttemptCount(ctx context.Context) {
	t.mu.Lock()
	t.failAttemptCount++
	count := t.failAttemptCount
	userID := t.userID
	t.mu.Unlock()

	t.saveUserProgress(ctx, userID, types.ProgressUpdate{FailAttemptCount: &count})
}

func (t *Tracker) saveUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) {
	if userID == "" {
		return
	}
	if err := t.store.UpdateUserProgress(ctx, userID, update); err != nil {
		t.logger.Error("store.UpdateUserProgress failed", zap.String("user_id", userID), zap.Error(err))
	}
}
