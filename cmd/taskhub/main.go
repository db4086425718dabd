package main

import (
	"os"

	"github.com/SakuraBurst/taskhub/internal/taskhub"
	"github.com/SakuraBurst/taskhub/internal/taskhub/config"
)

func main() {
	// ./taskhub --config ./config/config.yaml
	cfg := config.MustLoad()
	a := taskhub.NewApp(cfg)
	if err := a.Run(); err != nil {
		os.Exit(1)
	}
}
