package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/server"
	"github.com/dmitrijs2005/taskseal/internal/server/config"
)

func main() {

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if cfg.IssueTokenFor != "" {
		token, err := server.IssueToken(cfg)
		if err != nil {
			log.Fatalf("token error: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
