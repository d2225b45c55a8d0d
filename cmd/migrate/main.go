// Command migrate applies the database migrations.
//
//	migrate up            apply all pending migrations
//	migrate up-to <ver>   apply migrations up to and including ver
//	migrate down          roll back the last migration
//	migrate down-to <ver> roll back to ver
//	migrate status        print applied and pending migrations
//	migrate version       print the current version
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/migrate"
	"github.com/vogonweb/vogon/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	dsn := flag.String("dsn", "", "Postgres DSN (defaults to DATABASE_URL or the POSTGRES_* settings)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-dsn url] up | up-to <version> | down | down-to <version> | status | version")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	zl, err := logger.NewZapLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(context.Background(), zl, *dsn, flag.Args()); err != nil {
		zl.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, zl *zap.Logger, dsn string, args []string) error {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		cfg, err := config.NewConfig(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
		if err != nil {
			return err
		}
		dsn = cfg.Database.DSN()
	}

	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	defer db.Close()

	m, err := migrate.NewMigrator(db, zl)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		return m.Up(ctx)
	case "up-to":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		return m.UpTo(ctx, v)
	case "down":
		return m.Down(ctx)
	case "down-to":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		return m.DownTo(ctx, v)
	case "status":
		return m.Status(ctx)
	case "version":
		_, err := m.Version(ctx)
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func versionArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a version", args[0])
	}
	v, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[1], err)
	}
	return v, nil
}
