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

package migrate

import (
	"fmt"

	"github.com/andesobis/obis-export/internal/setup"
	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/observability"
	"github.com/andesobis/obis-export/pkg/secrets"
)

// Compile-time check to assert this config matches requirements.
var (
	_ setup.SecretManagerConfigProvider         = (*Config)(nil)
	_ setup.ObservabilityExporterConfigProvider = (*Config)(nil)
)

// Migration targets.
const (
	TargetOBIS   = "obis"
	TargetSurvey = "survey"
)

// Config represents the configuration for the migrate components. The
// database connections are not opened by setup; golang-migrate dials the
// selected one itself.
type Config struct {
	OBISDatabase   database.Config `env:",prefix=OBIS_"`
	SurveyDatabase database.Config `env:",prefix=SURVEY_"`
	SecretManager  secrets.Config
	Observability  observability.Config

	// Target is the database to migrate, obis or survey.
	Target string `env:"MIGRATE_DATABASE, default=obis"`
	// Set is the migration set to apply. It defaults to the target's own set.
	Set string `env:"MIGRATE_SET"`
	// Command is one of up, down or version.
	Command string `env:"MIGRATE_COMMAND, default=up"`
	// Migrations is the directory holding one subdirectory per migration set.
	Migrations string `env:"MIGRATIONS, default=migrations"`
}

// SecretManagerConfig returns the configuration for the secrets manager.
func (c *Config) SecretManagerConfig() *secrets.Config {
	return &c.SecretManager
}

// ObservabilityExporterConfig returns the metrics and trace exporter
// configuration.
func (c *Config) ObservabilityExporterConfig() *observability.Config {
	return &c.Observability
}

// TargetDatabaseConfig returns the connection settings of the target database.
func (c *Config) TargetDatabaseConfig() (*database.Config, error) {
	switch c.Target {
	case TargetOBIS:
		return &c.OBISDatabase, nil
	case TargetSurvey:
		return &c.SurveyDatabase, nil
	}
	return nil, fmt.Errorf("unknown database %q, must be %s or %s", c.Target, TargetOBIS, TargetSurvey)
}

// MigrationSet returns the migration set to apply to the target.
func (c *Config) MigrationSet() (database.MigrationSet, error) {
	name := c.Set
	if name == "" {
		name = c.Target
	}

	for _, s := range database.MigrationSets {
		if s.Dir == name {
			return s, nil
		}
	}
	return database.MigrationSet{}, fmt.Errorf("unknown migration set %q", name)
}
