// Package testutil provides Postgres-backed test suites. Each run builds a
// template database from the goose migrations once and clones it per suite.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/internal/migrate"
)

const templateDBName = "vogon_test_template"

var (
	templateOnce sync.Once
	templateErr  error
)

// TestDB holds test database resources
type TestDB struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	DB      *bun.DB
	Name    string
	cleanup func()

	tx    bun.Tx
	hasTx bool
}

// Close drops the test database.
func (t *TestDB) Close() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// GetDB returns the active test transaction, or the database when none is open.
func (t *TestDB) GetDB() bun.IDB {
	if t.hasTx {
		return t.tx
	}
	return t.DB
}

// BeginTestTx opens the transaction GetDB hands out until RollbackTestTx.
func (t *TestDB) BeginTestTx(ctx context.Context) error {
	if t.hasTx {
		return fmt.Errorf("transaction already started")
	}
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t.tx = tx
	t.hasTx = true
	return nil
}

// RollbackTestTx discards everything the test wrote.
func (t *TestDB) RollbackTestTx() error {
	if !t.hasTx {
		return nil
	}
	err := t.tx.Rollback()
	t.hasTx = false
	return err
}

// SetupTestDB clones the migrated template into a fresh database named
// vogon_test_<suffix>_<nanos>. The POSTGRES_* settings must point at a
// server where the user may create databases.
func SetupTestDB(ctx context.Context, suffix string) (*TestDB, error) {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	baseCfg, err := config.NewConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	templateOnce.Do(func() {
		templateErr = ensureTemplateDB(ctx, baseCfg, log)
	})
	if templateErr != nil {
		return nil, fmt.Errorf("ensure template db: %w", templateErr)
	}

	name := fmt.Sprintf("vogon_test_%s_%d", suffix, time.Now().UnixNano())

	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"
	adminPool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	_, err = adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateDBName))
	adminPool.Close()
	if err != nil {
		return nil, fmt.Errorf("create test db from template: %w", err)
	}

	testCfg := *baseCfg
	testCfg.Database.Database = name
	pool, err := createPool(ctx, &testCfg)
	if err != nil {
		dropTestDB(ctx, baseCfg, name)
		return nil, fmt.Errorf("connect to test db: %w", err)
	}
	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())

	return &TestDB{
		Config: &testCfg,
		Pool:   pool,
		DB:     db,
		Name:   name,
		cleanup: func() {
			_ = db.Close()
			pool.Close()
			dropTestDB(context.Background(), baseCfg, name)
		},
	}, nil
}

// ensureTemplateDB runs the migrations into the template database. An
// existing template is reused; drop it with DropTemplateDB after adding
// migrations.
func ensureTemplateDB(ctx context.Context, baseCfg *config.Config, log *slog.Logger) error {
	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"
	adminPool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer adminPool.Close()

	var exists bool
	err = adminPool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", templateDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check template exists: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", templateDBName)); err != nil {
		return fmt.Errorf("create template db: %w", err)
	}

	templateCfg := *baseCfg
	templateCfg.Database.Database = templateDBName
	pool, err := createPool(ctx, &templateCfg)
	if err != nil {
		dropTestDB(ctx, baseCfg, templateDBName)
		return fmt.Errorf("connect to template db: %w", err)
	}
	sqldb := stdlib.OpenDBFromPool(pool)
	defer func() {
		_ = sqldb.Close()
		pool.Close()
	}()

	if _, err := sqldb.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS pgcrypto"); err != nil {
		dropTestDB(ctx, baseCfg, templateDBName)
		return fmt.Errorf("create extension pgcrypto: %w", err)
	}

	m, err := migrate.NewMigrator(sqldb, zap.NewNop())
	if err != nil {
		return err
	}
	if err := m.Up(ctx); err != nil {
		dropTestDB(ctx, baseCfg, templateDBName)
		return err
	}

	log.Info("template database migrated", slog.String("name", templateDBName))
	return nil
}

func createPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = 5
	return pgxpool.NewWithConfig(ctx, poolConfig)
}

func dropTestDB(ctx context.Context, baseCfg *config.Config, name string) {
	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"

	pool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return
	}
	defer pool.Close()

	_, _ = pool.Exec(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
	_, _ = pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
}

// DropTemplateDB forces the next run to rebuild the template.
func DropTemplateDB(ctx context.Context) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	baseCfg, err := config.NewConfig(log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dropTestDB(ctx, baseCfg, templateDBName)
	return nil
}
