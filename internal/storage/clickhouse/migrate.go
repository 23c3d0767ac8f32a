package clickhouse

import (
	"context"
	"fmt"

	"backtest-lab/internal/storage/migrations"
)

// OpenAndMigrate creates the DSN database if needed, applies the embedded
// migrations and returns a connection to it.
func OpenAndMigrate(ctx context.Context, dsn string) (*Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	admin, err := newConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", db))
	admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", db, err)
	}

	conn, err := NewConn(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate applies every embedded migration. Statements must be idempotent
// (IF NOT EXISTS); ClickHouse has no transactional DDL to track versions with.
func Migrate(ctx context.Context, conn *Conn) error {
	migs, err := migrations.ClickHouse()
	if err != nil {
		return err
	}
	for _, m := range migs {
		for _, stmt := range m.Statements {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	opts, err := options(dsn)
	if err != nil {
		return "", err
	}
	if opts.Auth.Database == "" {
		return "", fmt.Errorf("clickhouse dsn %q has no database", dsn)
	}
	return opts.Auth.Database, nil
}
