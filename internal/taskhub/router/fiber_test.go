package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/taskhub/catalog"
	"github.com/SakuraBurst/taskhub/internal/taskhub/config"
	"github.com/SakuraBurst/taskhub/internal/taskhub/controller"
	"github.com/SakuraBurst/taskhub/internal/taskhub/database"
	"github.com/SakuraBurst/taskhub/internal/taskhub/router"
	"github.com/SakuraBurst/taskhub/internal/taskhub/tracker"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
	"github.com/SakuraBurst/taskhub/internal/taskhub/view"
)

func newRouter(t *testing.T) *router.HttpRouter {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	c, err := controller.NewController("secret", db, db, catalog.Default(), zap.NewNop(), db.Close)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return router.CreateRouter(c, &config.Config{HttpPort: "0", JWTSecret: "secret"}, zap.NewNop())
}

func do(t *testing.T, r *router.HttpRouter, method, path, token, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func login(t *testing.T, r *router.HttpRouter, name string) string {
	t.Helper()
	creds := `{"user_name":"` + name + `","password":"pa55"}`
	status, _ := do(t, r, http.MethodPost, "/api/v1/register", "", creds)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, r, http.MethodPost, "/api/v1/login", "", creds)
	require.Equal(t, http.StatusOK, status)
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Message)
	return resp.Message
}

func TestAuth(t *testing.T) {
	r := newRouter(t)

	tests := map[string]struct {
		method    string
		path      string
		body      string
		expStatus int
	}{
		"register without password should fail": {
			method:    http.MethodPost,
			path:      "/api/v1/register",
			body:      `{"user_name":"alice"}`,
			expStatus: http.StatusBadRequest,
		},
		"login of unknown user should fail": {
			method:    http.MethodPost,
			path:      "/api/v1/login",
			body:      `{"user_name":"nobody","password":"x"}`,
			expStatus: http.StatusBadRequest,
		},
		"protected route without token should fail": {
			method:    http.MethodGet,
			path:      "/api/v1/me/progress",
			expStatus: http.StatusUnauthorized,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			status, _ := do(t, r, test.method, test.path, "", test.body)
			assert.Equal(t, test.expStatus, status)
		})
	}

	login(t, r, "alice")
	status, _ := do(t, r, http.MethodPost, "/api/v1/register", "", `{"user_name":"alice","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/login", "", `{"user_name":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTasks(t *testing.T) {
	r := newRouter(t)

	status, body := do(t, r, http.MethodGet, "/api/v1/tasks", "", "")
	require.Equal(t, http.StatusOK, status)
	var tasks []types.Task
	require.NoError(t, json.Unmarshal(body, &tasks))
	assert.Equal(t, catalog.Default().All(), tasks)

	status, body = do(t, r, http.MethodGet, "/api/v1/tasks/3", "", "")
	require.Equal(t, http.StatusOK, status)
	var details view.Details
	require.NoError(t, json.Unmarshal(body, &details))
	assert.True(t, details.Found)
	assert.Equal(t, "$15.00", details.Task.Reward)
	assert.Len(t, details.Task.Tokens, 3)

	status, body = do(t, r, http.MethodGet, "/api/v1/tasks/404", "", "")
	require.Equal(t, http.StatusNotFound, status)
	details = view.Details{}
	require.NoError(t, json.Unmarshal(body, &details))
	assert.False(t, details.Found)
	assert.Equal(t, "Task Not Found", details.NotFound.Title)
	assert.Equal(t, "/explore", details.NotFound.BackLink.Href)
}

func TestProgressFlow(t *testing.T) {
	r := newRouter(t)
	token := login(t, r, "alice")

	status, _ := do(t, r, http.MethodPost, "/api/v1/me/tasks/1/submit", token, `{"text":"done"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/tasks/404/submit", token, `{"text":"done"}`)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, r, http.MethodPost, "/api/v1/me/tasks/2/visited", token, `{"value":true}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/tasks/2/first-click", token, `{"value":true}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/tasks/3/completed", token, `{"value":false}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/attempts/global", token, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/attempts/global", token, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/attempts/fail", token, "")
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, r, http.MethodGet, "/api/v1/me/progress", token, "")
	require.Equal(t, http.StatusOK, status)
	var snap tracker.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, map[string]bool{"1": true, "3": false}, snap.CompletedTasks)
	assert.Equal(t, map[string]bool{"2": true}, snap.VisitedTasks)
	assert.Equal(t, map[string]bool{"2": true}, snap.CompletedFirstClick)
	assert.Equal(t, 2, snap.GlobalAttemptCount)
	assert.Equal(t, 1, snap.FailAttemptCount)
	require.Len(t, snap.Submissions, 1)
	assert.Equal(t, types.StatusApproved, snap.Submissions[0].Status)
	assert.Equal(t, "done", *snap.Submissions[0].Text)

	status, body = do(t, r, http.MethodGet, "/api/v1/me/submissions/1", token, "")
	require.Equal(t, http.StatusOK, status)
	var sub types.TaskSubmission
	require.NoError(t, json.Unmarshal(body, &sub))
	assert.Equal(t, "1", sub.TaskID)
	status, _ = do(t, r, http.MethodGet, "/api/v1/me/submissions/2", token, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, r, http.MethodGet, "/api/v1/me/user", token, "")
	require.Equal(t, http.StatusOK, status)
	var user types.User
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "alice", user.UserName)
	assert.Equal(t, 1, user.TasksCompleted)

	status, _ = do(t, r, http.MethodPost, "/api/v1/me/refresh", token, "")
	require.Equal(t, http.StatusOK, status)

	// After logout the token still authenticates, the state is reloaded from the store.
	status, _ = do(t, r, http.MethodPost, "/api/v1/me/logout", token, "")
	require.Equal(t, http.StatusOK, status)
	status, body = do(t, r, http.MethodGet, "/api/v1/me/progress", token, "")
	require.Equal(t, http.StatusOK, status)
	snap = tracker.Snapshot{}
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 2, snap.GlobalAttemptCount)
	assert.Len(t, snap.Submissions, 1)
}

func TestTrackerOutsideProtectedScope(t *testing.T) {
	r := newRouter(t)
	r.Get("/unbound", r.GetProgress)

	status, _ := do(t, r, http.MethodGet, "/unbound", "", "")

	assert.Equal(t, http.StatusInternalServerError, status)
}
