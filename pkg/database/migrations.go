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

package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/andesobis/obis-export/internal/project"

	"github.com/golang-migrate/migrate/v4"

	// imported to register the postgres migration driver
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// imported to register the "file" source migration driver
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationSet names a directory of migrations and the golang-migrate
// bookkeeping table that tracks it. The survey and OBIS sets keep separate
// tables so both can live in the same database during tests.
type MigrationSet struct {
	Dir   string
	Table string
}

// MigrationSets lists the known sets in the order they are applied to a test
// database.
var MigrationSets = []MigrationSet{
	{Dir: "survey", Table: "survey_schema_migrations"},
	{Dir: "obis", Table: "schema_migrations"},
}

// URL returns the file:// source of the set inside this checkout.
func (s MigrationSet) URL() string {
	return "file://" + project.Root("migrations", s.Dir)
}

// DatabaseURL adds the set's bookkeeping table to a postgres URL.
func (s MigrationSet) DatabaseURL(u string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "x-migrations-table=" + url.QueryEscape(s.Table)
}

// MigrateUp applies every pending migration of the set.
func (s MigrationSet) MigrateUp(databaseURL string) (retErr error) {
	m, err := migrate.New(s.URL(), s.DatabaseURL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrate for %s: %w", s.Dir, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if retErr != nil {
			return
		}
		if srcErr != nil {
			retErr = fmt.Errorf("migrate source error: %w", srcErr)
		} else if dbErr != nil {
			retErr = fmt.Errorf("migrate database error: %w", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", s.Dir, err)
	}
	return nil
}
