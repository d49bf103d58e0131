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

package export

import (
	"testing"

	"github.com/andesobis/obis-export/internal/dwca"
	"github.com/andesobis/obis-export/internal/project"
	"github.com/andesobis/obis-export/internal/serverenv"
	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/database"

	"github.com/google/go-cmp/cmp"
)

var testDatabaseInstance *database.TestInstance

func TestMain(m *testing.M) {
	testDatabaseInstance = database.MustTestInstance()
	defer testDatabaseInstance.MustClose()
	m.Run()
}

// seedSurvey loads an active cruise with one fishing set holding a cod catch
// and a mixed catch.
var seedSurvey = []string{
	`INSERT INTO shared_models_cruise (id, mission_number, description, start_date, end_date, is_active)
	 VALUES (1, 'IML-2023-011', 'current', '2023-09-01T08:00:00Z', '2023-09-21T17:30:00Z', TRUE)`,
	`INSERT INTO shared_models_operation (id, name, is_fishing) VALUES (1, 'Fishing', TRUE)`,
	`INSERT INTO shared_models_set
		(id, cruise_id, set_number, station, start_date, end_date,
		 start_latitude, start_longitude, end_latitude, end_longitude, start_depth_m, end_depth_m)
	 VALUES (11, 1, 1, 'A1', '2023-09-01T09:00:00Z', '2023-09-01T09:15:00Z', 48.5, -68.25, 48.55, -68.2, 120.5, 135)`,
	`INSERT INTO shared_models_set_operations (set_id, operation_id) VALUES (11, 1)`,
	`INSERT INTO shared_models_species (id, scientific_name, common_name_en, aphia_id, is_mixed_catch)
	 VALUES (1, 'Gadus morhua', 'Atlantic cod', 126436, FALSE), (2, 'Invertebrata', 'Mixed invertebrates', NULL, TRUE)`,
	`INSERT INTO ecosystem_survey_catch (id, set_id, species_id, specimen_count, weight_kg, notes)
	 VALUES (100, 11, 1, 12, 8.75, ''), (101, 11, 2, NULL, 0.4, 'sorted later')`,
}

func TestRun(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	db, _ := testDatabaseInstance.NewDatabase(t)

	for _, sql := range seedSurvey {
		if _, err := db.Pool.Exec(ctx, sql); err != nil {
			t.Fatalf("failed to execute %q: %s", sql, err)
		}
	}

	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	env := serverenv.New(ctx,
		serverenv.WithDatabase(db),
		serverenv.WithSurveyDatabase(db),
		serverenv.WithBlobStorage(blobstore))

	config := testConfig()
	config.Build = true

	report, err := Run(ctx, config, env)
	if err != nil {
		t.Fatal(err)
	}
	if report.Build == nil || report.Build.Mission != "IML-2023-011" {
		t.Fatalf("unexpected build result %#v", report.Build)
	}

	b, err := blobstore.GetObject(ctx, config.Bucket, config.Filename)
	if err != nil {
		t.Fatal(err)
	}
	archive, err := dwca.Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := archive.Validate(); err != nil {
		t.Errorf("archive is not valid: %v", err)
	}

	want := map[string]int{
		dwca.EventFile.Name:       2,
		dwca.OccurrenceFile.Name:  1,
		dwca.MeasurementFile.Name: 2,
	}
	if diff := cmp.Diff(want, archive.Counts()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	// A second run over the same cruise gives the same archive.
	again, err := Run(ctx, config, env)
	if err != nil {
		t.Fatal(err)
	}
	if again.Export.SHA256 != report.Export.SHA256 {
		t.Errorf("expected identical archives, got %s and %s", report.Export.SHA256, again.Export.SHA256)
	}
}

func TestRun_WithoutBuild(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	db, _ := testDatabaseInstance.NewDatabase(t)

	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	env := serverenv.New(ctx,
		serverenv.WithDatabase(db),
		serverenv.WithBlobStorage(blobstore))

	report, err := Run(ctx, testConfig(), env)
	if err != nil {
		t.Fatal(err)
	}
	if report.Build != nil {
		t.Errorf("expected no build, got %#v", report.Build)
	}
	if got := report.Export.Files[dwca.EventFile.Name].Written; got != 0 {
		t.Errorf("expected empty archive, got %d events", got)
	}
}
