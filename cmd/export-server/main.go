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

// Command export-server writes the Darwin Core Archive on request.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/andesobis/obis-export/internal/buildinfo"
	"github.com/andesobis/obis-export/internal/export"
	"github.com/andesobis/obis-export/internal/interrupt"
	"github.com/andesobis/obis-export/internal/setup"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/server"

	"github.com/joho/godotenv"
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

	var config export.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	exportServer, err := export.NewServer(&config, env)
	if err != nil {
		return fmt.Errorf("export.NewServer: %w", err)
	}

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	logger.Infow("listening", "port", config.Port)

	return srv.ServeHTTPHandler(ctx, exportServer.Routes(ctx))
}
