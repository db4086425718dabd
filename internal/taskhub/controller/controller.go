package controller

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SakuraBurst/taskhub/internal/taskhub/catalog"
	"github.com/SakuraBurst/taskhub/internal/taskhub/tracker"
	"github.com/SakuraBurst/taskhub/internal/taskhub/types"
	"github.com/SakuraBurst/taskhub/internal/taskhub/view"
)

const tokenTTL = time.Hour * 72

type userDatabase interface {
	CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error)
	GetUserByID(ctx context.Context, userID int) (*types.User, error)
	GetUserByUserName(ctx context.Context, userName string) (*types.User, error)
	UpdateTasksCompleted(ctx context.Context, userID, count int) error
}

// Controller authenticates users and acts as the session collaborator of their trackers.
type Controller struct {
	userDatabase  userDatabase
	catalog       *catalog.Catalog
	sessions      *tracker.Registry
	jwtSecret     []byte
	databaseClose func() error
	logger        *zap.Logger

	mu    sync.RWMutex
	users map[int]*types.User
}

func NewController(jwtSecret string, u userDatabase, store tracker.RemoteStore, c *catalog.Catalog, logger *zap.Logger, dbClose func() error) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctrl := &Controller{
		userDatabase:  u,
		catalog:       c,
		jwtSecret:     []byte(jwtSecret),
		databaseClose: dbClose,
		logger:        logger.Named("controller"),
		users:         make(map[int]*types.User),
	}
	sessions, err := tracker.NewRegistry(tracker.Config{
		Store:   store,
		Session: ctrl,
		Catalog: c,
		Logger:  logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tracker.NewRegistry failed")
	}
	ctrl.sessions = sessions
	return ctrl, nil
}

func (c *Controller) CreateNewUser(ctx context.Context, user *types.UserRequest) (int, error) {
	hashedPass, err := cryptPassword([]byte(user.Password))
	if err != nil {
		return 0, errors.Wrap(err, "cryptPassword failed")
	}
	id, err := c.userDatabase.CreateNewUser(ctx, &types.UserRequest{UserName: user.UserName, Password: string(hashedPass)})
	if err != nil {
		return 0, errors.Wrap(err, "userDatabase.CreateNewUser failed")
	}
	return id, nil
}

// AuthorizeUser checks the credentials, opens the user's tracker and returns a signed token.
func (c *Controller) AuthorizeUser(ctx context.Context, user *types.UserRequest) (string, error) {
	foundUser, err := c.userDatabase.GetUserByUserName(ctx, user.UserName)
	if err != nil {
		return "", errors.Wrap(err, "userDatabase.GetUserByUserName failed")
	}
	err = bcrypt.CompareHashAndPassword([]byte(foundUser.Password), []byte(user.Password))
	if err != nil {
		return "", errors.Wrap(err, "bcrypt.CompareHashAndPassword failed")
	}
	c.rememberUser(foundUser)
	if _, err := c.sessions.Login(ctx, strconv.Itoa(foundUser.ID)); err != nil {
		return "", errors.Wrap(err, "sessions.Login failed")
	}
	c.logger.Info("user authorized", zap.Int("user_id", foundUser.ID))
	return c.createJWT(foundUser.ID)
}

func (c *Controller) Logout(ctx context.Context, userID int) {
	c.sessions.Logout(ctx, strconv.Itoa(userID))
	c.mu.Lock()
	delete(c.users, userID)
	c.mu.Unlock()
}

// Tracker returns the tracker of an authenticated user, a token that outlived
// the process gets a freshly loaded one.
func (c *Controller) Tracker(ctx context.Context, userID int) (*tracker.Tracker, error) {
	if t, ok := c.sessions.Get(strconv.Itoa(userID)); ok {
		return t, nil
	}
	if _, err := c.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	t, err := c.sessions.Login(ctx, strconv.Itoa(userID))
	if err != nil {
		return nil, errors.Wrap(err, "sessions.Login failed")
	}
	return t, nil
}

func (c *Controller) GetUser(ctx context.Context, userID int) (*types.User, error) {
	c.mu.RLock()
	user, ok := c.users[userID]
	c.mu.RUnlock()
	if ok {
		copied := *user
		return &copied, nil
	}
	return c.refreshUser(ctx, userID)
}

// UpdateTasksCompleted stores the approved submissions count on the user record.
func (c *Controller) UpdateTasksCompleted(ctx context.Context, userID string, count int) error {
	id, err := strconv.Atoi(userID)
	if err != nil {
		return errors.Wrapf(err, "invalid user id %q", userID)
	}
	if err := c.userDatabase.UpdateTasksCompleted(ctx, id, count); err != nil {
		return errors.Wrap(err, "userDatabase.UpdateTasksCompleted failed")
	}
	c.mu.Lock()
	if user, ok := c.users[id]; ok {
		user.TasksCompleted = count
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) RefreshUser(ctx context.Context, userID string) error {
	id, err := strconv.Atoi(userID)
	if err != nil {
		return errors.Wrapf(err, "invalid user id %q", userID)
	}
	_, err = c.refreshUser(ctx, id)
	return err
}

func (c *Controller) refreshUser(ctx context.Context, userID int) (*types.User, error) {
	user, err := c.userDatabase.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "userDatabase.GetUserByID failed")
	}
	return c.rememberUser(user), nil
}

// rememberUser caches a password-less copy of user and returns another copy of it.
func (c *Controller) rememberUser(user *types.User) *types.User {
	cached := *user
	cached.Password = ""
	c.mu.Lock()
	c.users[user.ID] = &cached
	c.mu.Unlock()
	result := cached
	return &result
}

func (c *Controller) GetAllTasks() []types.Task {
	return c.catalog.All()
}

func (c *Controller) GetTask(id string) view.Details {
	return view.TaskDetails(c.catalog, id)
}

func (c *Controller) Close() error {
	return c.databaseClose()
}

func (c *Controller) createJWT(id int) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["id"] = id
	claims["exp"] = time.Now().Add(tokenTTL).Unix()

	return token.SignedString(c.jwtSecret)
}

func cryptPassword(pass []byte) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword(pass, bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "bcrypt.GenerateFromPassword failed")
	}
	return hash, nil
}
