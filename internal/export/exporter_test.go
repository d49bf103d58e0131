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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andesobis/obis-export/internal/dwca"
	"github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/internal/project"
	"github.com/andesobis/obis-export/internal/storage"

	"github.com/google/go-cmp/cmp"
)

type fakeSource struct {
	events       []*model.Event
	occurrences  []*model.Occurrence
	measurements []*model.Measurement

	err error
}

func (f *fakeSource) IterateEvents(_ context.Context, fn func(*model.Event) error) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.events {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) IterateOccurrences(_ context.Context, fn func(*model.Occurrence) error) error {
	for _, o := range f.occurrences {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) IterateMeasurements(_ context.Context, fn func(*model.Measurement) error) error {
	for _, m := range f.measurements {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func testConfig() *Config {
	return &Config{
		Bucket:   "exports",
		Filename: "obis-dwca.zip",
		Timeout:  time.Minute,
		Dataset: dwca.DatasetConfig{
			Language:     "En",
			License:      "http://creativecommons.org/licenses/by/4.0/legalcode",
			Title:        "Test survey",
			Organization: "Fisheries and Oceans Canada",
		},
	}
}

func occurrence(id, eventID string) *model.Occurrence {
	return &model.Occurrence{
		OccurrenceID:     id,
		EventID:          eventID,
		ScientificName:   "Gadus morhua",
		ScientificNameID: model.ScientificNameID(126436),
		BasisOfRecord:    model.BasisHumanObservation,
		OccurrenceStatus: model.StatusPresent,
	}
}

// testSource has one valid branch (M-001) and one invalid branch (M-002) whose
// descendants must all be dropped.
func testSource() *fakeSource {
	start := time.Date(2023, 9, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2023, 9, 21, 17, 30, 0, 0, time.UTC)

	invalidOccurrence := occurrence("M-001-catch-3", "M-001")
	invalidOccurrence.BasisOfRecord = ""

	return &fakeSource{
		events: []*model.Event{
			{EventID: "M", Start: &start, StartPrecision: model.PrecisionDay, End: &end, EndPrecision: model.PrecisionDay},
			{EventID: "M-001", ParentEventID: "M", Start: &start, StartPrecision: model.PrecisionSecond},
			{EventID: "M-002", ParentEventID: "M"},
			{EventID: "M-002-a", ParentEventID: "M-002", Start: &start, StartPrecision: model.PrecisionSecond},
		},
		occurrences: []*model.Occurrence{
			occurrence("M-001-catch-1", "M-001"),
			occurrence("M-002-catch-2", "M-002"),
			invalidOccurrence,
		},
		measurements: []*model.Measurement{
			{ID: 1, EventID: "M-001", OccurrenceID: "M-001-catch-1", MeasurementType: "Weight", MeasurementValue: "8.75", MeasurementUnit: "kg"},
			{ID: 2, EventID: "M-001", OccurrenceID: "M-001-catch-3", MeasurementType: "Weight", MeasurementValue: "1"},
			{ID: 3, EventID: "M", MeasurementValue: "4"},
		},
	}
}

func TestExporter_Run(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	config := testConfig()

	summary, err := NewExporter(testSource(), blobstore, config).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	wantFiles := map[string]*FileSummary{
		dwca.EventFile.Name:       {Written: 2, Dropped: 2},
		dwca.OccurrenceFile.Name:  {Written: 1, Dropped: 2},
		dwca.MeasurementFile.Name: {Written: 1, Dropped: 2},
	}
	if diff := cmp.Diff(wantFiles, summary.Files); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
	if summary.Bucket != "exports" || summary.Object != "obis-dwca.zip" {
		t.Errorf("unexpected destination %s/%s", summary.Bucket, summary.Object)
	}
	if len(summary.SHA256) != 64 {
		t.Errorf("expected hex sha256, got %q", summary.SHA256)
	}

	b, err := blobstore.GetObject(ctx, "exports", "obis-dwca.zip")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Bytes != len(b) {
		t.Errorf("expected %d bytes, wrote %d", summary.Bytes, len(b))
	}
	if ct, err := blobstore.(*storage.Memory).ContentType("exports", "obis-dwca.zip"); err != nil || ct != storage.ContentTypeZip {
		t.Errorf("expected content type %q, got %q (%v)", storage.ContentTypeZip, ct, err)
	}

	archive, err := dwca.Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := archive.Validate(); err != nil {
		t.Errorf("archive is not valid: %v", err)
	}

	var eventIDs []string
	for _, row := range archive.Tables[dwca.EventFile.Name].Rows {
		eventIDs = append(eventIDs, row[0])
	}
	if diff := cmp.Diff([]string{"M", "M-001"}, eventIDs); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	idx := dwca.OccurrenceFile.Index(dwca.TermOccurrenceID)
	occurrences := archive.Tables[dwca.OccurrenceFile.Name].Rows
	if len(occurrences) != 1 || occurrences[0][idx] != "M-001-catch-1" {
		t.Errorf("unexpected occurrences %v", occurrences)
	}
}

func TestExporter_Deterministic(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	config := testConfig()

	var archives [][]byte
	for i := 0; i < 2; i++ {
		if _, err := NewExporter(testSource(), blobstore, config).Run(ctx); err != nil {
			t.Fatal(err)
		}
		b, err := blobstore.GetObject(ctx, config.Bucket, config.Filename)
		if err != nil {
			t.Fatal(err)
		}
		archives = append(archives, b)
	}

	if !bytes.Equal(archives[0], archives[1]) {
		t.Errorf("expected identical archives")
	}
}

func TestExporter_Empty(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	config := testConfig()

	summary, err := NewExporter(&fakeSource{}, blobstore, config).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := summary.Files[dwca.EventFile.Name].Written; got != 0 {
		t.Errorf("expected no events, got %d", got)
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
		t.Errorf("empty archive is not valid: %v", err)
	}
	if diff := cmp.Diff(map[string]int{dwca.EventFile.Name: 0}, archive.Counts()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestExporter_Errors(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	config := testConfig()

	t.Run("source", func(t *testing.T) {
		t.Parallel()

		blobstore, err := storage.NewMemory(ctx)
		if err != nil {
			t.Fatal(err)
		}

		errBoom := errors.New("connection refused")
		if _, err := NewExporter(&fakeSource{err: errBoom}, blobstore, config).Run(ctx); !errors.Is(err, errBoom) {
			t.Errorf("expected %v to be %v", err, errBoom)
		}
		if _, err := blobstore.GetObject(ctx, config.Bucket, config.Filename); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected no archive, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		blobstore, err := storage.NewMemory(ctx)
		if err != nil {
			t.Fatal(err)
		}

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := NewExporter(testSource(), blobstore, config).Run(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected %v to be %v", err, context.Canceled)
		}
		if _, err := blobstore.GetObject(ctx, config.Bucket, config.Filename); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected no archive, got %v", err)
		}
	})
}
