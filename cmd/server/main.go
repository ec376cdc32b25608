package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fitiq/fitiq/internal/buildinfo"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server"
	"github.com/fitiq/fitiq/internal/server/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg, err := config.LoadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	logger := logging.NewJSONLogger(os.Stdout, level)
	logger.Info(ctx, "starting fitiq server", "version", buildinfo.Version(), "addr", cfg.HTTPAddr)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		return 1
	}
	return 0
}
