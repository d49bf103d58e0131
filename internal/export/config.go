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

// Package export writes the OBIS tables to a Darwin Core Archive.
package export

import (
	"fmt"
	"time"

	"github.com/andesobis/obis-export/internal/dwca"
	"github.com/andesobis/obis-export/internal/setup"
	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/observability"
	"github.com/andesobis/obis-export/pkg/secrets"
)

// Compile-time check to assert this config matches requirements.
var _ setup.BlobstoreConfigProvider = (*Config)(nil)
var _ setup.DatabaseConfigProvider = (*Config)(nil)
var _ setup.SurveyDatabaseConfigProvider = (*Config)(nil)
var _ setup.SecretManagerConfigProvider = (*Config)(nil)
var _ setup.ObservabilityExporterConfigProvider = (*Config)(nil)

// Config represents the configuration and associated environment variables for
// the export components.
type Config struct {
	OBISDatabase          database.Config `env:",prefix=OBIS_"`
	SurveyDatabase        database.Config `env:",prefix=SURVEY_"`
	SecretManager         secrets.Config
	Storage               storage.Config
	ObservabilityExporter observability.Config
	Dataset               dwca.DatasetConfig

	Port     string        `env:"PORT, default=8080"`
	Bucket   string        `env:"EXPORT_BUCKET, default=."`
	Filename string        `env:"EXPORT_FILENAME, default=obis-dwca.zip"`
	Timeout  time.Duration `env:"EXPORT_TIMEOUT, default=10m"`

	// Build runs the event builder against the survey database before the
	// archive is written.
	Build   bool   `env:"EXPORT_BUILD, default=true"`
	Mission string `env:"OBIS_MISSION"`

	// Maintenance rejects export requests, for example while migrations run.
	Maintenance bool `env:"MAINTENANCE_MODE"`
}

func (c *Config) MaintenanceMode() bool {
	return c.Maintenance
}

func (c *Config) BlobstoreConfig() *storage.Config {
	return &c.Storage
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.OBISDatabase
}

// SurveyDatabaseConfig returns nil when the builder is disabled so no survey
// connection is opened. The survey connection is always read-only.
func (c *Config) SurveyDatabaseConfig() *database.Config {
	if !c.Build {
		return nil
	}
	c.SurveyDatabase.ReadOnly = true
	return &c.SurveyDatabase
}

func (c *Config) SecretManagerConfig() *secrets.Config {
	return &c.SecretManager
}

func (c *Config) ObservabilityExporterConfig() *observability.Config {
	return &c.ObservabilityExporter
}

// Validate checks the export settings that envconfig cannot.
func (c *Config) Validate() error {
	if c.Filename == "" {
		return fmt.Errorf("EXPORT_FILENAME is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("EXPORT_TIMEOUT must be a positive duration")
	}
	return c.Dataset.Validate()
}
