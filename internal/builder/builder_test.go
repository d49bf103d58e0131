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

package builder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	obismodel "github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/internal/project"
	surveydb "github.com/andesobis/obis-export/internal/survey/database"
	surveymodel "github.com/andesobis/obis-export/internal/survey/model"
	"github.com/andesobis/obis-export/pkg/database"

	"github.com/google/go-cmp/cmp"
)

type fakeSurvey struct {
	cruises []*surveymodel.Cruise
	sets    map[int64][]*surveymodel.Set
	fishing map[int64]bool
	catches map[int64][]*surveymodel.Catch
}

func (f *fakeSurvey) ActiveCruise(_ context.Context) (*surveymodel.Cruise, error) {
	for _, c := range f.cruises {
		if c.IsActive {
			return c, nil
		}
	}
	return nil, surveydb.ErrNoActiveCruise
}

func (f *fakeSurvey) CruiseByMission(_ context.Context, mission string) (*surveymodel.Cruise, error) {
	for _, c := range f.cruises {
		if c.MissionNumber == mission {
			return c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeSurvey) IterateSets(_ context.Context, cruiseID int64, fn func(*surveymodel.Set) error) error {
	for _, s := range f.sets[cruiseID] {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSurvey) HasFishingOperation(_ context.Context, setID int64) (bool, error) {
	return f.fishing[setID], nil
}

func (f *fakeSurvey) IterateCatches(_ context.Context, setID int64, fn func(*surveymodel.Catch) error) error {
	for _, c := range f.catches[setID] {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

type fakeOBIS struct {
	calls   int
	batches map[string]*obismodel.Batch
}

func (f *fakeOBIS) ReplaceCruise(_ context.Context, mission string, batch *obismodel.Batch) error {
	if err := batch.Validate(mission); err != nil {
		return err
	}
	if f.batches == nil {
		f.batches = make(map[string]*obismodel.Batch)
	}
	f.calls++
	f.batches[mission] = batch
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func testSurvey() *fakeSurvey {
	cruiseStart := time.Date(2023, 9, 1, 8, 0, 0, 0, time.UTC)
	cruiseEnd := time.Date(2023, 9, 21, 17, 30, 0, 0, time.UTC)
	setStart := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	setEnd := time.Date(2023, 9, 1, 9, 15, 0, 0, time.UTC)

	cod := surveymodel.Species{ID: 1, ScientificName: "Gadus morhua", AphiaID: ptr(126436)}
	mixed := surveymodel.Species{ID: 2, ScientificName: "Invertebrata", IsMixedCatch: true}
	unmatched := surveymodel.Species{ID: 3, ScientificName: "Unknown fish"}

	return &fakeSurvey{
		cruises: []*surveymodel.Cruise{
			{ID: 1, MissionNumber: "IML-2022-008"},
			{ID: 2, MissionNumber: "IML-2023-011", StartDate: &cruiseStart, EndDate: &cruiseEnd, IsActive: true},
		},
		sets: map[int64][]*surveymodel.Set{
			2: {
				{
					ID: 11, CruiseID: 2, SetNumber: 1,
					StartDate: &setStart, EndDate: &setEnd,
					StartLatitude: ptr(48.5), StartLongitude: ptr(-68.25),
					EndLatitude: ptr(48.55), EndLongitude: ptr(-68.2),
					StartDepth: ptr(135.0), EndDepth: ptr(120.5),
					Remarks: "calm",
				},
				{
					ID: 10, CruiseID: 2, SetNumber: 2,
					StartLatitude: ptr(49.1), StartLongitude: ptr(-67.5),
				},
			},
		},
		fishing: map[int64]bool{11: true},
		catches: map[int64][]*surveymodel.Catch{
			11: {
				{ID: 100, SetID: 11, Species: cod, SpecimenCount: ptr(12), WeightKg: ptr(8.75)},
				{ID: 101, SetID: 11, Species: mixed, WeightKg: ptr(0.4)},
				{ID: 102, SetID: 11, Species: unmatched, SpecimenCount: ptr(1)},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	obis := &fakeOBIS{}

	result, err := New(testSurvey(), obis).Build(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.Mission != "IML-2023-011" {
		t.Errorf("expected active cruise, got %q", result.Mission)
	}
	if result.Events != 2 || result.Occurrences != 1 || result.Measurements != 2 || result.SkippedSets != 1 {
		t.Errorf("unexpected result %#v", result)
	}
	if diff := cmp.Diff(map[string]int{ReasonMixedCatch: 1, ReasonInvalidSpecies: 1}, result.Skipped); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	batch := obis.batches["IML-2023-011"]
	if batch == nil {
		t.Fatal("expected batch to be written")
	}

	cruise, set := batch.Events[0], batch.Events[1]
	if cruise.EventID != "IML-2023-011" || cruise.ParentEventID != "" || cruise.EventType != EventTypeSurvey {
		t.Errorf("unexpected cruise event %#v", cruise)
	}
	if got, want := *cruise.DecimalLatitude, 48.8; got != want {
		t.Errorf("expected cruise latitude %v to be %v", got, want)
	}
	if got, want := *cruise.DecimalLongitude, -67.875; got != want {
		t.Errorf("expected cruise longitude %v to be %v", got, want)
	}
	if !strings.HasPrefix(cruise.FootprintWKT, "POLYGON") {
		t.Errorf("expected polygon footprint, got %q", cruise.FootprintWKT)
	}

	if set.EventID != "IML-2023-011-001" || set.ParentEventID != cruise.EventID || set.FieldNumber != "1" {
		t.Errorf("unexpected set event %#v", set)
	}
	if !strings.HasPrefix(set.FootprintWKT, "LINESTRING") {
		t.Errorf("expected line footprint, got %q", set.FootprintWKT)
	}
	if *set.MinimumDepthInMeters != 120.5 || *set.MaximumDepthInMeters != 135 {
		t.Errorf("unexpected depth range %v-%v", *set.MinimumDepthInMeters, *set.MaximumDepthInMeters)
	}
	// About 6.7 km between start and end.
	if u := *set.CoordinateUncertaintyInMeters; u < 3000 || u > 3600 {
		t.Errorf("unexpected uncertainty %v", u)
	}

	want := []*obismodel.Occurrence{
		{
			OccurrenceID:           "IML-2023-011-001-catch-100",
			EventID:                "IML-2023-011-001",
			VerbatimIdentification: "Gadus morhua",
			ScientificName:         "Gadus morhua",
			ScientificNameID:       "urn:lsid:marinespecies.org:taxname:126436",
			BasisOfRecord:          obismodel.BasisHumanObservation,
			OccurrenceStatus:       obismodel.StatusPresent,
		},
	}
	if diff := cmp.Diff(want, batch.Occurrences); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	var types []string
	for _, m := range batch.Measurements {
		types = append(types, m.MeasurementType+"="+m.MeasurementValue+" "+m.MeasurementUnit)
	}
	if diff := cmp.Diff([]string{"Number of specimens=12 individuals", "Weight=8.75 kg"}, types); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	survey := testSurvey()
	obis := &fakeOBIS{}
	b := New(survey, obis)

	if _, err := b.Build(ctx, "IML-2023-011"); err != nil {
		t.Fatal(err)
	}
	first := obis.batches["IML-2023-011"]

	if _, err := b.Build(ctx, "IML-2023-011"); err != nil {
		t.Fatal(err)
	}
	second := obis.batches["IML-2023-011"]

	if obis.calls != 2 {
		t.Errorf("expected 2 writes, got %d", obis.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	survey := testSurvey()
	if _, err := New(survey, &fakeOBIS{}).Build(ctx, "NOPE"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected %v to be %v", err, database.ErrNotFound)
	}

	survey.cruises[1].IsActive = false
	if _, err := New(survey, &fakeOBIS{}).Build(ctx, ""); !errors.Is(err, surveydb.ErrNoActiveCruise) {
		t.Errorf("expected %v to be %v", err, surveydb.ErrNoActiveCruise)
	}
}

func TestBuild_CruiseWithoutSets(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	obis := &fakeOBIS{}

	result, err := New(testSurvey(), obis).Build(ctx, "IML-2022-008")
	if err != nil {
		t.Fatal(err)
	}
	if result.Events != 1 || result.Occurrences != 0 {
		t.Errorf("unexpected result %#v", result)
	}

	cruise := obis.batches["IML-2022-008"].Events[0]
	if cruise.Start != nil || cruise.DecimalLatitude != nil || cruise.FootprintWKT != "" {
		t.Errorf("expected an event without dates or location, got %#v", cruise)
	}
}

func TestNewOccurrence(t *testing.T) {
	t.Parallel()

	setEvent := &obismodel.Event{EventID: "M-001"}

	cases := []struct {
		name   string
		catch  *surveymodel.Catch
		status string
		err    error
	}{
		{
			name:   "present",
			catch:  &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "Gadus morhua", AphiaID: ptr(126436)}, SpecimenCount: ptr(3)},
			status: obismodel.StatusPresent,
		},
		{
			name:   "unknown_quantity",
			catch:  &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "Gadus morhua", AphiaID: ptr(126436)}},
			status: obismodel.StatusPresent,
		},
		{
			name:   "absent",
			catch:  &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "Gadus morhua", AphiaID: ptr(126436)}, SpecimenCount: ptr(0), WeightKg: ptr(0.0)},
			status: obismodel.StatusAbsent,
		},
		{
			name:   "untidy_name",
			catch:  &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "\uFEFFGadus\u00a0 morhua\t", AphiaID: ptr(126436)}, SpecimenCount: ptr(1)},
			status: obismodel.StatusPresent,
		},
		{
			name:  "blank_name",
			catch: &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "\uFEFF\u00a0\t", AphiaID: ptr(126436)}},
			err:   ErrInvalidSpecies,
		},
		{
			name:  "no_aphia",
			catch: &surveymodel.Catch{ID: 1, Species: surveymodel.Species{ScientificName: "Gadus morhua"}},
			err:   ErrInvalidSpecies,
		},
		{
			name:  "no_name",
			catch: &surveymodel.Catch{ID: 1, Species: surveymodel.Species{AphiaID: ptr(126436)}},
			err:   ErrInvalidSpecies,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			o, err := newOccurrence(setEvent, tc.catch)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v to be %v", err, tc.err)
			}
			if tc.err != nil {
				return
			}
			if o.OccurrenceStatus != tc.status {
				t.Errorf("expected %q to be %q", o.OccurrenceStatus, tc.status)
			}
			if got, want := o.OccurrenceID, "M-001-catch-1"; got != want {
				t.Errorf("expected %q to be %q", got, want)
			}
			if got, want := o.ScientificName, "Gadus morhua"; got != want {
				t.Errorf("expected %q to be %q", got, want)
			}
		})
	}
}

func TestNewSetEvent_PartialPositions(t *testing.T) {
	t.Parallel()

	parent := &obismodel.Event{EventID: "M", Mission: "M"}

	e := newSetEvent(parent, &surveymodel.Set{
		SetNumber:      7,
		StartLatitude:  ptr(48.5),
		StartLongitude: ptr(-68.25),
		EndDepth:       ptr(88.0),
	})

	if got, want := e.EventID, "M-007"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
	if !strings.HasPrefix(e.FootprintWKT, "POINT") {
		t.Errorf("expected point footprint, got %q", e.FootprintWKT)
	}
	if e.CoordinateUncertaintyInMeters != nil {
		t.Errorf("expected no uncertainty without an end position")
	}
	if *e.MinimumDepthInMeters != 88 || *e.MaximumDepthInMeters != 88 {
		t.Errorf("unexpected depth range %v-%v", *e.MinimumDepthInMeters, *e.MaximumDepthInMeters)
	}

	e = newSetEvent(parent, &surveymodel.Set{SetNumber: 8})
	if e.DecimalLatitude != nil || e.FootprintWKT != "" || e.MinimumDepthInMeters != nil {
		t.Errorf("expected no location, got %#v", e)
	}
}
