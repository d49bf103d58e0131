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

// Command export-obis rebuilds the OBIS tables for a survey cruise and writes
// them as a Darwin Core Archive.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/andesobis/obis-export/internal/buildinfo"
	"github.com/andesobis/obis-export/internal/export"
	envflag "github.com/andesobis/obis-export/internal/flag"
	"github.com/andesobis/obis-export/internal/interrupt"
	"github.com/andesobis/obis-export/internal/setup"
	"github.com/andesobis/obis-export/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

func main() {
	ctx, done := interrupt.Context()

	// .env must be loaded before the logger reads LOG_LEVEL.
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
	ef.Bool("build", "EXPORT_BUILD", true, "rebuild the OBIS tables from the survey database first")
	ef.String("mission", "OBIS_MISSION", "", "cruise mission number, defaults to the active cruise")
	ef.String("output", "EXPORT_FILENAME", "obis-dwca.zip", "archive object name")
	dbName := flags.String("database", "obis", "database to export from, only obis is supported")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *dbName != "obis" {
		return fmt.Errorf("cannot export from database %q, only obis is supported", *dbName)
	}

	var config export.Config
	env, err := setup.SetupWith(ctx, &config, ef.Lookuper(envconfig.OsLookuper()))
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	report, err := export.Run(ctx, &config, env)
	if err != nil {
		return fmt.Errorf("export.Run: %w", err)
	}

	logger.Infow("export finished", "object", report.Export.Object, "sha256", report.Export.SHA256)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
