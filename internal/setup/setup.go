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

// Package setup provides common logic for configuring the various services.
package setup

import (
	"context"
	"fmt"

	"github.com/andesobis/obis-export/internal/serverenv"
	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/observability"
	"github.com/andesobis/obis-export/pkg/secrets"

	"github.com/sethvargo/go-envconfig"
)

// BlobstoreConfigProvider provides the information about current storage
// configuration.
type BlobstoreConfigProvider interface {
	BlobstoreConfig() *storage.Config
}

// DatabaseConfigProvider ensures that the environment config can provide a
// configuration for the OBIS database.
type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

// SurveyDatabaseConfigProvider ensures that the environment config can provide
// a configuration for the upstream survey database. Returning nil means the
// binary does not need it for this run.
type SurveyDatabaseConfigProvider interface {
	SurveyDatabaseConfig() *database.Config
}

// ObservabilityExporterConfigProvider signals that the config knows how to
// configure an observability exporter.
type ObservabilityExporterConfigProvider interface {
	ObservabilityExporterConfig() *observability.Config
}

// SecretManagerConfigProvider signals that the config knows how to configure
// a secret manager.
type SecretManagerConfigProvider interface {
	SecretManagerConfig() *secrets.Config
}

// Setup runs common initialization code for all servers. See SetupWith.
func Setup(ctx context.Context, config interface{}) (*serverenv.ServerEnv, error) {
	return SetupWith(ctx, config, envconfig.OsLookuper())
}

// SetupWith processes the given configuration using envconfig. It is
// responsible for establishing database connections, resolving secrets, and
// accessing app configs. The provided interface must implement the various
// interfaces.
func SetupWith(ctx context.Context, config interface{}, l envconfig.Lookuper) (*serverenv.ServerEnv, error) {
	logger := logging.FromContext(ctx).Named("setup")

	// Build a list of mutators. This list will grow as we initialize more of
	// the configuration, such as the secret manager.
	var mutatorFuncs []envconfig.MutatorFunc

	// Build a list of options to pass to the server env.
	var serverEnvOpts []serverenv.Option

	// The secret manager is set up first, since the rest of the configuration
	// can reference secrets.
	if provider, ok := config.(SecretManagerConfigProvider); ok {
		logger.Debugw("configuring secret manager")

		smConfig := provider.SecretManagerConfig()
		if err := envconfig.ProcessWith(ctx, smConfig, l); err != nil {
			return nil, fmt.Errorf("unable to process secret manager env: %w", err)
		}

		sm, err := secrets.SecretManagerFor(ctx, smConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to secret manager: %w", err)
		}

		mutatorFuncs = append(mutatorFuncs, secrets.Resolver(sm, smConfig))
		serverEnvOpts = append(serverEnvOpts, serverenv.WithSecretManager(sm))

		logger.Infow("secret manager", "type", smConfig.Type)
	}

	// Process the full configuration with all mutators.
	if err := envconfig.ProcessWith(ctx, config, l, mutatorFuncs...); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	logger.Debugw("provided", "config", config)

	// From here on, partially built environments must be torn down on error.
	env := serverenv.New(ctx, serverEnvOpts...)
	fail := func(err error) (*serverenv.ServerEnv, error) {
		if cerr := env.Close(ctx); cerr != nil {
			logger.Errorw("failed to close partial environment", "error", cerr)
		}
		return nil, err
	}

	if provider, ok := config.(ObservabilityExporterConfigProvider); ok {
		oeConfig := provider.ObservabilityExporterConfig()
		oe, err := observability.NewFromEnv(oeConfig)
		if err != nil {
			return fail(fmt.Errorf("unable to create observability provider: %w", err))
		}
		if err := oe.StartExporter(ctx); err != nil {
			return fail(fmt.Errorf("failed to start observability: %w", err))
		}
		env = serverenv.WithObservabilityExporter(oe)(env)

		logger.Infow("observability", "exporter", oeConfig.ExporterType)
	}

	if provider, ok := config.(BlobstoreConfigProvider); ok {
		bsConfig := provider.BlobstoreConfig()
		blobStore, err := storage.BlobstoreFor(ctx, bsConfig)
		if err != nil {
			return fail(fmt.Errorf("unable to connect to storage system: %w", err))
		}
		env = serverenv.WithBlobStorage(blobStore)(env)

		logger.Infow("blobstore", "type", bsConfig.Type)
	}

	if provider, ok := config.(DatabaseConfigProvider); ok {
		dbConfig := provider.DatabaseConfig()
		db, err := database.NewFromEnv(ctx, dbConfig)
		if err != nil {
			return fail(fmt.Errorf("unable to connect to OBIS database: %w", err))
		}
		env = serverenv.WithDatabase(db)(env)

		logger.Infow("database", "name", dbConfig.Name, "host", dbConfig.Host)
	}

	if provider, ok := config.(SurveyDatabaseConfigProvider); ok {
		if dbConfig := provider.SurveyDatabaseConfig(); dbConfig != nil {
			db, err := database.NewFromEnv(ctx, dbConfig)
			if err != nil {
				return fail(fmt.Errorf("unable to connect to survey database: %w", err))
			}
			env = serverenv.WithSurveyDatabase(db)(env)

			logger.Infow("survey database", "name", dbConfig.Name, "host", dbConfig.Host)
		}
	}

	return env, nil
}
