package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/Domenick1991/skyline/config"
	"github.com/Domenick1991/skyline/internal/bootstrap"
	"github.com/Domenick1991/skyline/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Usage: migrate [up|down|status|version|reset]
func main() {
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger(os.Stdout, cfg.Log.Level)

	if err := migrate(context.Background(), cfg.Database.DSN(), command, flag.Args()); err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	logger.Info("migration finished", "command", command)
}

func migrate(ctx context.Context, dsn, command string, args []string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}
	if err := goose.RunContext(ctx, command, db, ".", rest...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
