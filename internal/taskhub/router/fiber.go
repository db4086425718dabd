package router

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SakuraBurst/taskhub/internal/taskhub/config"
	"github.com/SakuraBurst/taskhub/internal/taskhub/database"
	"github.com/SakuraBurst/taskhub/internal/taskhub/router/middleware"
	"github.com/SakuraBurst/taskhub/internal/taskhub/tracker"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
	"github.com/SakuraBurst/taskhub/internal/taskhub/view"
)

type controller interface {
	CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error)
	AuthorizeUser(ctx context.Context, user *types.UserRequest) (string, error)
	Logout(ctx context.Context, userID int)
	Tracker(ctx context.Context, userID int) (*tracker.Tracker, error)
	GetUser(ctx context.Context, userID int) (*types.User, error)
	GetAllTasks() []types.Task
	GetTask(id string) view.Details
	Close() error
}

type HttpRouter struct {
	controller controller
	*fiber.App
	appLogger *zap.Logger
	httpPort  string
}

const internalServerErrorMessage = "Internal server error"
const badRequestMessage = "Malformed request data"
const userIDKey = "user_id"

func (r *HttpRouter) Run() error {
	return r.App.Listen(":" + r.httpPort)
}

func (r *HttpRouter) Close() error {
	if err := r.controller.Close(); err != nil {
		r.appLogger.Error("controller.Close failed: ", zap.Error(err))
	}
	return r.App.Shutdown()
}

func errorResponse(ctx *fiber.Ctx, status int, message string) error {
	ctx.Status(status)
	return ctx.JSON(fiber.Map{"status": "error", "message": message})
}

func (r *HttpRouter) Register(ctx *fiber.Ctx) error {
	request := &types.UserRequest{}
	err := ctx.BodyParser(request)
	if err != nil {
		r.appLogger.Error("ctx.BodyParser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
	}
	if request.UserName == "" || request.Password == "" {
		return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
	}
	id, err := r.controller.CreateNewUser(ctx.UserContext(), request)
	if errors.Is(err, database.ErrUserAlreadyExist) {
		r.appLogger.Error("controller.CreateNewUser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusBadRequest, "A user with this name already exists")
	}
	if err != nil {
		r.appLogger.Error("controller.CreateNewUser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusInternalServerError, internalServerErrorMessage)
	}
	ctx.Status(http.StatusCreated)
	return ctx.JSON(fiber.Map{"status": "success", "id": id})
}

func (r *HttpRouter) Login(ctx *fiber.Ctx) error {
	request := &types.UserRequest{}
	err := ctx.BodyParser(request)
	if err != nil {
		r.appLogger.Error("ctx.BodyParser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
	}
	if request.UserName == "" || request.Password == "" {
		return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
	}
	token, err := r.controller.AuthorizeUser(ctx.UserContext(), request)
	if errors.Is(err, database.ErrUserNotExist) || errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		r.appLogger.Error("controller.AuthorizeUser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusBadRequest, "Wrong user name or password")
	}
	if err != nil {
		r.appLogger.Error("controller.AuthorizeUser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusInternalServerError, internalServerErrorMessage)
	}
	ctx.Status(http.StatusOK)
	return ctx.JSON(fiber.Map{"status": "success", "message": token})
}

func (r *HttpRouter) GetAllTasks(ctx *fiber.Ctx) error {
	return ctx.JSON(r.controller.GetAllTasks())
}

func (r *HttpRouter) GetTask(ctx *fiber.Ctx) error {
	details := r.controller.GetTask(ctx.Params("id"))
	if !details.Found {
		ctx.Status(http.StatusNotFound)
	}
	return ctx.JSON(details)
}

// BindTracker puts the tracker of the token owner into the request user context.
func (r *HttpRouter) BindTracker(ctx *fiber.Ctx) error {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "Authorization required")
	}
	t, err := r.controller.Tracker(ctx.UserContext(), userID)
	if errors.Is(err, database.ErrUserNotExist) {
		r.appLogger.Error("controller.Tracker failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusUnauthorized, "User does not exist")
	}
	if err != nil {
		r.appLogger.Error("controller.Tracker failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusInternalServerError, internalServerErrorMessage)
	}
	ctx.Locals(userIDKey, userID)
	ctx.SetUserContext(tracker.WithTracker(ctx.UserContext(), t))
	return ctx.Next()
}

func (r *HttpRouter) GetProgress(ctx *fiber.Ctx) error {
	t := tracker.MustFromContext(ctx.UserContext())
	return ctx.JSON(t.Snapshot())
}

func (r *HttpRouter) GetSubmissions(ctx *fiber.Ctx) error {
	t := tracker.MustFromContext(ctx.UserContext())
	return ctx.JSON(t.Submissions())
}

func (r *HttpRouter) GetSubmission(ctx *fiber.Ctx) error {
	t := tracker.MustFromContext(ctx.UserContext())
	submission, ok := t.GetUserTaskSubmission(ctx.Params("taskId"))
	if !ok {
		return errorResponse(ctx, http.StatusNotFound, "No submission for this task")
	}
	return ctx.JSON(submission)
}

func (r *HttpRouter) SubmitTask(ctx *fiber.Ctx) error {
	t := tracker.MustFromContext(ctx.UserContext())
	taskID := ctx.Params("id")
	if _, ok := t.GetTaskByID(taskID); !ok {
		return errorResponse(ctx, http.StatusNotFound, "Task Not Found")
	}
	data := &types.SubmissionData{}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(data); err != nil {
			r.appLogger.Error("ctx.BodyParser failed: ", zap.Error(err))
			return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
		}
	}
	if !t.SubmitTask(ctx.UserContext(), taskID, *data) {
		return errorResponse(ctx, http.StatusInternalServerError, "Submission failed")
	}
	submission, _ := t.GetUserTaskSubmission(taskID)
	return ctx.JSON(fiber.Map{"status": "success", "submission": submission})
}

type flagUpdate func(t *tracker.Tracker, ctx context.Context, taskID string, value bool)

func (r *HttpRouter) updateFlag(update flagUpdate) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		t := tracker.MustFromContext(ctx.UserContext())
		taskID := ctx.Params("id")
		if _, ok := t.GetTaskByID(taskID); !ok {
			return errorResponse(ctx, http.StatusNotFound, "Task Not Found")
		}
		request := &types.FlagRequest{}
		if err := ctx.BodyParser(request); err != nil {
			r.appLogger.Error("ctx.BodyParser failed: ", zap.Error(err))
			return errorResponse(ctx, http.StatusBadRequest, badRequestMessage)
		}
		update(t, ctx.UserContext(), taskID, request.Value)
		return ctx.JSON(t.Snapshot())
	}
}

func (r *HttpRouter) increment(inc func(t *tracker.Tracker, ctx context.Context)) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		t := tracker.MustFromContext(ctx.UserContext())
		inc(t, ctx.UserContext())
		return ctx.JSON(t.Snapshot())
	}
}

func (r *HttpRouter) Refresh(ctx *fiber.Ctx) error {
	t := tracker.MustFromContext(ctx.UserContext())
	if err := t.Refresh(ctx.UserContext()); err != nil {
		r.appLogger.Error("tracker.Refresh failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusInternalServerError, internalServerErrorMessage)
	}
	return ctx.JSON(t.Snapshot())
}

func (r *HttpRouter) GetUser(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(userIDKey).(int)
	user, err := r.controller.GetUser(ctx.UserContext(), userID)
	if err != nil {
		r.appLogger.Error("controller.GetUser failed: ", zap.Error(err))
		return errorResponse(ctx, http.StatusInternalServerError, internalServerErrorMessage)
	}
	return ctx.JSON(user)
}

func (r *HttpRouter) Logout(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(userIDKey).(int)
	r.controller.Logout(ctx.UserContext(), userID)
	return ctx.JSON(fiber.Map{"status": "success"})
}

func CreateRouter(c controller, cfg *config.Config, logger *zap.Logger) *HttpRouter {
	appLogger := logger.Named("app")
	// Route params end up as keys of tracker caches and must outlive the request.
	app := fiber.New(fiber.Config{Immutable: true})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	r := &HttpRouter{controller: c, App: app, appLogger: appLogger, httpPort: cfg.HttpPort}
	api := r.Group("/api/v1")
	api.Post("/register", r.Register)
	api.Post("/login", r.Login)

	tasks := api.Group("/tasks")
	tasks.Get("/", r.GetAllTasks)
	tasks.Get("/:id", r.GetTask)

	me := api.Group("/me", middleware.Protected([]byte(cfg.JWTSecret)), r.BindTracker)
	me.Get("/user", r.GetUser)
	me.Get("/progress", r.GetProgress)
	me.Get("/submissions", r.GetSubmissions)
	me.Get("/submissions/:taskId", r.GetSubmission)
	me.Post("/tasks/:id/submit", r.SubmitTask)
	me.Post("/tasks/:id/completed", r.updateFlag((*tracker.Tracker).UpdateCompletedTasks))
	me.Post("/tasks/:id/first-click", r.updateFlag((*tracker.Tracker).UpdateCompletedFirstClick))
	me.Post("/tasks/:id/visited", r.updateFlag((*tracker.Tracker).UpdateVisitedTasks))
	me.Post("/attempts/global", r.increment((*tracker.Tracker).IncrementGlobalAttemptCount))
	me.Post("/attempts/fail", r.increment((*tracker.Tracker).IncrementFailAttemptCount))
	me.Post("/refresh", r.Refresh)
	me.Post("/logout", r.Logout)
	return r
}
