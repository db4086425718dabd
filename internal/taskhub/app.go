package taskhub

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/SakuraBurst/taskhub/internal/pkg/logger"
	"github.com/SakuraBurst/taskhub/internal/taskhub/catalog"
	"github.com/SakuraBurst/taskhub/internal/taskhub/config"
	"github.com/SakuraBurst/taskhub/internal/taskhub/controller"
	"github.com/SakuraBurst/taskhub/internal/taskhub/database"
	"github.com/SakuraBurst/taskhub/internal/taskhub/router"
)

type App struct {
	router *router.HttpRouter
	logger *zap.Logger
}

// Run serves HTTP until the server fails or an interrupt signal arrives.
func (a *App) Run() error {
	var g run.Group

	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalCancel()
		g.Add(
			func() error {
				<-signalCtx.Done()
				a.logger.Info("termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	{
		g.Add(
			func() error {
				if err := a.router.Run(); err != nil {
					return errors.Wrap(err, "router.Run failed")
				}
				return nil
			},
			func(_ error) {
				if err := a.router.Close(); err != nil {
					a.logger.Error("router.Close failed: ", zap.Error(err))
				}
			},
		)
	}

	err := g.Run()
	if err != nil {
		a.logger.Error("app stopped with error", zap.Error(err))
	}
	_ = a.logger.Sync()
	return err
}

func NewApp(cfg *config.Config) *App {
	log, err := logger.InitLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	store, err := database.NewStore(context.Background(), cfg.Storage, log)
	if err != nil {
		panic(err)
	}
	c, err := controller.NewController(cfg.JWTSecret, store, store, catalog.Default(), log, store.Close)
	if err != nil {
		panic(err)
	}
	r := router.CreateRouter(c, cfg, log)
	log.Info("app initialized", zap.String("storage", cfg.Storage.Driver), zap.String("port", cfg.HttpPort))
	return &App{
		router: r,
		logger: log,
	}
}
