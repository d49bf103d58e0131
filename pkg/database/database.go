// Copyright 2020 Google LLC
// Copyright 2024 the OBIS Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database is a base for database connection pools and transaction
// helpers shared by the survey and OBIS repositories.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/andesobis/obis-export/pkg/logging"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrNotFound indicates that the requested record was not found in the
// database.
var ErrNotFound = errors.New("record not found")

// IsNotFound determines if an error is a record not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// DB is a handle to a database connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// NewFromEnv sets up the database connections using the configuration in the
// process's environment variables. This should be called just once per
// database.
func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx).Named("database")

	pgxConfig, err := pgxpool.ParseConfig(config.ConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if v := config.PoolMinConnections; v > 0 {
		pgxConfig.MinConns = v
	}
	if v := config.PoolMaxConnections; v > 0 {
		pgxConfig.MaxConns = v
	}
	if v := config.PoolMaxConnLife; v > 0 {
		pgxConfig.MaxConnLifetime = v
	}
	if v := config.PoolMaxConnIdle; v > 0 {
		pgxConfig.MaxConnIdleTime = v
	}
	if v := config.PoolHealthCheck; v > 0 {
		pgxConfig.HealthCheckPeriod = v
	}

	if config.ReadOnly {
		pgxConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}

	logger.Debugw("creating connection pool",
		"host", config.Host,
		"name", config.Name,
		"read_only", config.ReadOnly)

	pool, err := pgxpool.ConnectConfig(ctx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases database connections.
func (db *DB) Close(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("database")
	logger.Debugw("closing connection pool")
	db.Pool.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// InTx runs the given function f within a transaction with isolation level
// isoLevel. The transaction is committed when f returns nil and rolled back
// otherwise.
func (db *DB) InTx(ctx context.Context, isoLevel pgx.TxIsoLevel, f func(tx pgx.Tx) error) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	if err := f(tx); err != nil {
		if err1 := tx.Rollback(ctx); err1 != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", err1, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
