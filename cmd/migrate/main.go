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

// Command migrate applies database migrations to the OBIS or survey database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/andesobis/obis-export/internal/buildinfo"
	envflag "github.com/andesobis/obis-export/internal/flag"
	"github.com/andesobis/obis-export/internal/interrupt"
	"github.com/andesobis/obis-export/internal/migrate"
	"github.com/andesobis/obis-export/internal/setup"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/observability"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

func main() {
	ctx, done := interrupt.Context()

	dotenvErr := godotenv.Load()

	logger := logging.NewLoggerFromEnv().
		With("build_id", buildinfo.OBISExport.ID()).
		With("build_tag", buildinfo.OBISExport.Tag())
	ctx = logging.WithLogger(ctx, logger)

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		logger.Warnw("failed to load .env", "error", dotenvErr)
	}

	err := realMain(ctx)
	done()

	if err != nil {
		logger.Fatal(err)
	}
}

func realMain(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	ef := envflag.NewEnvFlags(flags)
	ef.String("database", "MIGRATE_DATABASE", migrate.TargetOBIS, "database to migrate, obis or survey")
	ef.String("command", "MIGRATE_COMMAND", migrate.CommandUp, "up, down or version")
	ef.String("path", "MIGRATIONS", "migrations", "directory holding the migration sets")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	// The SQL views are only collected when the wrapped driver exists before
	// the exporter starts.
	if err := observability.InstrumentSQLDriver("postgres"); err != nil {
		return err
	}

	var config migrate.Config
	env, err := setup.SetupWith(ctx, &config, ef.Lookuper(envconfig.OsLookuper()))
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	m, err := migrate.New(&config)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}

	logger.Infow("beginning migration", "database", config.Target, "command", config.Command)

	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("migrate.Run: %w", err)
	}

	logger.Infow("migration completed")
	return nil
}
