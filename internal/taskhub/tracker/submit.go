package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// SubmitTask stores an approved submission for taskID, keeps at most one
// submission per task locally, pushes the approved count to the session and
// marks the task as completed. It reports false on every expected failure.
func (t *Tracker) SubmitTask(ctx context.Context, taskID string, data types.SubmissionData) bool {
	userID := t.UserID()
	if userID == "" {
		return false
	}
	logger := t.logger.With(zap.String("user_id", userID), zap.String("task_id", taskID))

	submission, err := t.store.SubmitTask(ctx, userID, taskID, types.SubmitRequest{
		SubmissionData: data,
		Status:         types.StatusApproved,
	})
	if err != nil {
		logger.Error("store.SubmitTask failed", zap.Error(err))
		return false
	}
	if submission == nil {
		logger.Warn("submission rejected by store")
		return false
	}

	t.mu.Lock()
	if t.userID != userID {
		t.mu.Unlock()
		logger.Warn("user changed while submitting, local state left untouched")
		return false
	}
	next := make([]types.TaskSubmission, 0, len(t.submissions)+1)
	for _, s := range t.submissions {
		if s.TaskID != taskID {
			next = append(next, s)
		}
	}
	next = append(next, *submission)
	t.submissions = next
	approved := countApproved(next)
	t.mu.Unlock()

	if err := t.session.UpdateTasksCompleted(ctx, userID, approved); err != nil {
		logger.Error("session.UpdateTasksCompleted failed", zap.Error(err))
		return false
	}

	t.UpdateCompletedTasks(ctx, taskID, true)
	return true
}

func countApproved(submissions []types.TaskSubmission) int {
	n := 0
	for _, s := range submissions {
		if s.Status == types.StatusApproved {
			n++
		}
	}
	return n
}
