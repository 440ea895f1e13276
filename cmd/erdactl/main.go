package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sol-erda/tracker/internal/cli"
	"github.com/sol-erda/tracker/internal/config"
	"github.com/sol-erda/tracker/internal/db"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCmd(func(cmd *cobra.Command) (*cli.Env, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// Keep GORM and connection chatter off the table output
		cfg.Server.Env = "production"
		logger.Setup(cfg.IsDevelopment())

		pgDB, err := db.ConnectPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return &cli.Env{Source: services.NewOcrService(pgDB), Location: cfg.Display.Location}, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
