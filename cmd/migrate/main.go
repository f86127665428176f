package main

import (
	"context"
	"flag"
	"os"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/db"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "migrations", "directory with migration files")
	command := flag.String("command", "up", "goose command (up, down, status, version)")
	flag.Parse()

	zlog, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()
	logger := zlog.Sugar()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatalw("failed to set dialect", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := goose.RunContext(ctx, *command, database.DB, *dir, flag.Args()...); err != nil {
		logger.Fatalw("migration failed", "command", *command, "error", err)
	}
	logger.Infow("migration complete", "command", *command)
}
