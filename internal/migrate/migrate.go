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

// Package migrate applies the SQL migrations of one migration set to the OBIS
// or survey database.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/observability"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"go.uber.org/zap"

	// imported to register the "file" source migration driver
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrOBISOnSurvey is returned when the OBIS tables are aimed at the survey
// database, which is owned by the upstream application.
var ErrOBISOnSurvey = errors.New("refusing to apply OBIS migrations to the survey database")

// sqlDriverName is the database/sql driver golang-migrate's postgres
// package registers (lib/pq).
const sqlDriverName = "postgres"

// Commands understood by Run.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandVersion = "version"
)

// New makes a new, configured Migration.
func New(config *Config) (*Migration, error) {
	dbConfig, err := config.TargetDatabaseConfig()
	if err != nil {
		return nil, err
	}
	set, err := config.MigrationSet()
	if err != nil {
		return nil, err
	}
	if config.Target == TargetSurvey && set.Dir == TargetOBIS {
		return nil, ErrOBISOnSurvey
	}

	switch config.Command {
	case CommandUp, CommandDown, CommandVersion:
	default:
		return nil, fmt.Errorf("unknown command %q", config.Command)
	}

	return &Migration{
		config:   config,
		database: dbConfig,
		set:      set,
	}, nil
}

// Migration applies one migration set to one database.
type Migration struct {
	config   *Config
	database *database.Config
	set      database.MigrationSet
}

// SourceURL is the file:// URL of the migration set.
func (m *Migration) SourceURL() string {
	return "file://" + filepath.Join(m.config.Migrations, m.set.Dir)
}

// open connects through the OpenCensus-wrapped postgres driver so that
// migration statements show up in the SQL views and traces.
func (m *Migration) open(ctx context.Context) (*migrate.Migrate, error) {
	if err := observability.InstrumentSQLDriver(sqlDriverName); err != nil {
		return nil, err
	}

	db, err := sql.Open(observability.OCSQLDriverName, m.database.ConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: m.set.Table})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	mg, err := migrate.NewWithDatabaseInstance(m.SourceURL(), sqlDriverName, driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrate: %w", err)
	}
	mg.Log = &migrateLogger{logger: logging.FromContext(ctx).Named("migrate")}
	return mg, nil
}

// Run executes the configured command. "down" rolls back a single migration.
func (m *Migration) Run(ctx context.Context) (retErr error) {
	logger := logging.FromContext(ctx).Named("migrate.Run")

	mg, err := m.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := mg.Close()
		if retErr == nil && srcErr != nil {
			retErr = fmt.Errorf("migrate source error: %w", srcErr)
		}
		if retErr == nil && dbErr != nil {
			retErr = fmt.Errorf("migrate database error: %w", dbErr)
		}
	}()

	// Stop at the next migration boundary when interrupted.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			mg.GracefulStop <- true
		case <-finished:
		}
	}()

	switch m.config.Command {
	case CommandUp:
		err = mg.Up()
	case CommandDown:
		err = mg.Steps(-1)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %s: %w", m.config.Command, err)
	}

	version, dirty, err := mg.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Infow("no migrations applied", "database", m.config.Target, "set", m.set.Dir)
	case err != nil:
		return fmt.Errorf("failed to read version: %w", err)
	default:
		logger.Infow("migration version",
			"database", m.config.Target,
			"set", m.set.Dir,
			"version", version,
			"dirty", dirty)
	}
	return nil
}

// Version returns the applied version of the set. It is 0 when nothing has
// been applied.
func (m *Migration) Version(ctx context.Context) (uint, bool, error) {
	mg, err := m.open(ctx)
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read version: %w", err)
	}
	return version, dirty, nil
}

// migrateLogger adapts zap to migrate.Logger.
type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debugf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
