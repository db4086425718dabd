package controller_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SakuraBurst/taskhub/internal/taskhub/catalog"
	"github.com/SakuraBurst/taskhub/internal/taskhub/controller"
	"github.com/SakuraBurst/taskhub/internal/taskhub/database"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
)

const testSecret = "test-secret"

func newController(t *testing.T) (*controller.Controller, *database.SQLite) {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	c, err := controller.NewController(testSecret, db, db, catalog.Default(), zap.NewNop(), db.Close)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, db
}

func parseID(t *testing.T, token string) int {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	return int(claims["id"].(float64))
}

func TestNewController(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = controller.NewController(testSecret, db, db, nil, nil, db.Close)

	assert.Error(t, err)
}

func TestController_RegisterAndAuthorize(t *testing.T) {
	c, db := newController(t)
	ctx := context.Background()

	id, err := c.CreateNewUser(ctx, &types.UserRequest{UserName: "alice", Password: "pa55"})
	require.NoError(t, err)

	stored, err := db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, "pa55", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("pa55")))

	_, err = c.CreateNewUser(ctx, &types.UserRequest{UserName: "alice", Password: "x"})
	assert.ErrorIs(t, err, database.ErrUserAlreadyExist)

	token, err := c.AuthorizeUser(ctx, &types.UserRequest{UserName: "alice", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, id, parseID(t, token))

	_, err = c.AuthorizeUser(ctx, &types.UserRequest{UserName: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, bcrypt.ErrMismatchedHashAndPassword)

	_, err = c.AuthorizeUser(ctx, &types.UserRequest{UserName: "bob", Password: "pa55"})
	assert.ErrorIs(t, err, database.ErrUserNotExist)
}

func TestController_SubmissionUpdatesUserAggregate(t *testing.T) {
	c, db := newController(t)
	ctx := context.Background()

	id, err := c.CreateNewUser(ctx, &types.UserRequest{UserName: "alice", Password: "pa55"})
	require.NoError(t, err)
	_, err = c.AuthorizeUser(ctx, &types.UserRequest{UserName: "alice", Password: "pa55"})
	require.NoError(t, err)

	tr, err := c.Tracker(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(id), tr.UserID())

	text := "done"
	require.True(t, tr.SubmitTask(ctx, "1", types.SubmissionData{Text: &text}))
	require.True(t, tr.SubmitTask(ctx, "2", types.SubmissionData{}))
	require.True(t, tr.SubmitTask(ctx, "1", types.SubmissionData{}))

	stored, err := db.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TasksCompleted)

	user, err := c.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, user.TasksCompleted)
	assert.Empty(t, user.Password)

	progress, err := db.GetUserProgress(ctx, strconv.Itoa(id))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true, "2": true}, progress.CompletedTasks)

	// A new session reloads what was persisted.
	c.Logout(ctx, id)
	assert.Empty(t, tr.Snapshot().CompletedTasks)

	tr, err = c.Tracker(ctx, id)
	require.NoError(t, err)
	snap := tr.Snapshot()
	assert.Len(t, snap.Submissions, 2)
	assert.Equal(t, map[string]bool{"1": true, "2": true}, snap.CompletedTasks)
}

func TestController_TrackerForUnknownUser(t *testing.T) {
	c, _ := newController(t)

	_, err := c.Tracker(context.Background(), 42)

	assert.ErrorIs(t, err, database.ErrUserNotExist)
}

func TestController_RefreshUser(t *testing.T) {
	c, db := newController(t)
	ctx := context.Background()
	id, err := c.CreateNewUser(ctx, &types.UserRequest{UserName: "alice", Password: "pa55"})
	require.NoError(t, err)

	_, err = c.GetUser(ctx, id)
	require.NoError(t, err)
	require.NoError(t, db.UpdateTasksCompleted(ctx, id, 5))

	user, err := c.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, user.TasksCompleted)

	require.NoError(t, c.RefreshUser(ctx, strconv.Itoa(id)))
	user, err = c.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, user.TasksCompleted)

	assert.Error(t, c.RefreshUser(ctx, "not-a-number"))
	assert.Error(t, c.UpdateTasksCompleted(ctx, "not-a-number", 1))
}

func TestController_Tasks(t *testing.T) {
	c, _ := newController(t)

	assert.Equal(t, catalog.Default().All(), c.GetAllTasks())
	assert.True(t, c.GetTask("1").Found)
	assert.False(t, c.GetTask("missing").Found)
}
