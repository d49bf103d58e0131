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

package main

import (
	"testing"
	"time"

	"github.com/andesobis/obis-export/internal/dwca"
	"github.com/andesobis/obis-export/internal/obis/model"
)

func testArchive(t *testing.T, status string) *dwca.Archive {
	t.Helper()

	ds := &dwca.DatasetConfig{Language: "En", License: "CC-BY", Title: "Test"}
	start := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)

	row, err := dwca.MapEvent(&model.Event{EventID: "M", Start: &start, StartPrecision: model.PrecisionDay}, ds)
	if err != nil {
		t.Fatal(err)
	}

	w := dwca.NewWriter(ds)
	if err := w.Append(dwca.EventFile, row); err != nil {
		t.Fatal(err)
	}
	// Rows appended directly skip mapper validation.
	if err := w.Append(dwca.OccurrenceFile, dwca.Row{
		dwca.TermEventID:          "M",
		dwca.TermOccurrenceID:     "M-1",
		dwca.TermScientificName:   "Gadus morhua",
		dwca.TermScientificNameID: model.ScientificNameID(126436),
		dwca.TermBasisOfRecord:    model.BasisHumanObservation,
		dwca.TermOccurrenceStatus: status,
	}); err != nil {
		t.Fatal(err)
	}

	b, err := w.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	a, err := dwca.Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status string
		errs   int
	}{
		{name: "valid", status: model.StatusPresent},
		{name: "bad_status", status: "seen", errs: 1},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := analyze(testArchive(t, tc.status))
			if (err != nil) != (tc.errs > 0) {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(s.Errors); got != tc.errs {
				t.Errorf("expected %d errors, got %v", tc.errs, s.Errors)
			}

			occ := s.Files[dwca.OccurrenceFile.Name]
			if occ == nil || occ.Rows != 1 || occ.Core {
				t.Errorf("unexpected occurrence summary %#v", occ)
			}
			if ev := s.Files[dwca.EventFile.Name]; ev == nil || !ev.Core {
				t.Errorf("unexpected event summary %#v", ev)
			}
		})
	}
}
