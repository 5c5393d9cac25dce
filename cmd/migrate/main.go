package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"thermolog-server/internal/config"
	"thermolog-server/internal/db"
	"thermolog-server/internal/db/migrate"
	"thermolog-server/internal/logging"
	"thermolog-server/internal/modules/temperature/repository"
)

const appName = "thermolog-migrate"

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command>\n  migrate  apply pending SQLite migrations\n  indexes  create MongoDB indexes\n", os.Args[0])
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg, version, appName)
	slog.SetDefault(logger)

	ctx := context.Background()
	switch os.Args[1] {
	case "migrate":
		err = runMigrations(ctx, cfg, logger)
	case "indexes":
		err = ensureMongoIndexes(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	fmt.Println("done")
}

func runMigrations(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()
	return migrate.Run(ctx, conn)
}

func ensureMongoIndexes(ctx context.Context, cfg config.Config) error {
	if cfg.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is not set")
	}
	client, coll, err := db.OpenMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.CloseMongo(context.Background(), client) }()
	return repository.EnsureIndexes(ctx, coll)
}
