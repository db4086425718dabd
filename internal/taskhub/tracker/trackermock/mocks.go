package trackermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

// MockRemoteStore is a testify mock of tracker.RemoteStore.
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) GetTaskSubmissions(ctx context.Context, userID string) ([]types.TaskSubmission, error) {
	args := m.Called(ctx, userID)
	var r0 []types.TaskSubmission
	if v := args.Get(0); v != nil {
		r0 = v.([]types.TaskSubmission)
	}
	return r0, args.Error(1)
}

func (m *MockRemoteStore) GetUserProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	args := m.Called(ctx, userID)
	var r0 *types.UserProgress
	if v := args.Get(0); v != nil {
		r0 = v.(*types.UserProgress)
	}
	return r0, args.Error(1)
}

func (m *MockRemoteStore) SubmitTask(ctx context.Context, userID, taskID string, req types.SubmitRequest) (*types.TaskSubmission, error) {
	args := m.Called(ctx, userID, taskID, req)
	var r0 *types.TaskSubmission
	if v := args.Get(0); v != nil {
		r0 = v.(*types.TaskSubmission)
	}
	return r0, args.Error(1)
}

func (m *MockRemoteStore) UpdateUserProgress(ctx context.Context, userID string, update types.ProgressUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

// MockSession is a testify mock of tracker.Session.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) UpdateTasksCompleted(ctx context.Context, userID string, count int) error {
	args := m.Called(ctx, userID, count)
	return args.Error(0)
}

func (m *MockSession) RefreshUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
