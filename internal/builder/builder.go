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

// Package builder populates the OBIS tables from a survey cruise.
//
// A cruise becomes a top level event. Each set with a fishing operation
// becomes a child event, each identified catch an occurrence, and each
// occurrence's count and weight extended measurements. The rows of one cruise
// are replaced as a whole, so building the same cruise twice is harmless.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	obisdb "github.com/andesobis/obis-export/internal/obis/database"
	obismodel "github.com/andesobis/obis-export/internal/obis/model"
	surveydb "github.com/andesobis/obis-export/internal/survey/database"
	surveymodel "github.com/andesobis/obis-export/internal/survey/model"
	"github.com/andesobis/obis-export/pkg/logging"
)

// ErrInvalidSpecies is returned for catches whose species cannot be published
// to OBIS because it has no AphiaID or no scientific name.
var ErrInvalidSpecies = errors.New("invalid species")

// SurveyReader reads the upstream survey database.
type SurveyReader interface {
	ActiveCruise(ctx context.Context) (*surveymodel.Cruise, error)
	CruiseByMission(ctx context.Context, mission string) (*surveymodel.Cruise, error)
	IterateSets(ctx context.Context, cruiseID int64, f func(*surveymodel.Set) error) error
	HasFishingOperation(ctx context.Context, setID int64) (bool, error)
	IterateCatches(ctx context.Context, setID int64, f func(*surveymodel.Catch) error) error
}

// OBISWriter stores the rows built for a cruise.
type OBISWriter interface {
	ReplaceCruise(ctx context.Context, mission string, batch *obismodel.Batch) error
}

var (
	_ SurveyReader = (*surveydb.SurveyDB)(nil)
	_ OBISWriter   = (*obisdb.OBISDB)(nil)
)

// Skip reasons recorded on the catches_skipped measure.
const (
	ReasonMixedCatch     = "MIXED_CATCH"
	ReasonInvalidSpecies = "INVALID_SPECIES"
)

// Result summarizes one build.
type Result struct {
	Mission      string         `json:"mission"`
	Events       int            `json:"events"`
	Occurrences  int            `json:"occurrences"`
	Measurements int            `json:"measurements"`
	SkippedSets  int            `json:"skippedSets"`
	Skipped      map[string]int `json:"skippedCatches,omitempty"`
	Duration     time.Duration  `json:"duration"`
}

// Builder turns survey cruises into OBIS rows.
type Builder struct {
	survey SurveyReader
	obis   OBISWriter
}

// New creates a builder reading from survey and writing to obis.
func New(survey SurveyReader, obis OBISWriter) *Builder {
	return &Builder{
		survey: survey,
		obis:   obis,
	}
}

// Build creates the OBIS rows for the cruise with the given mission number, or
// the active cruise when mission is empty, and replaces any rows previously
// built for it.
func (b *Builder) Build(ctx context.Context, mission string) (*Result, error) {
	logger := logging.FromContext(ctx).Named("builder")
	start := time.Now()

	cruise, err := b.cruise(ctx, mission)
	if err != nil {
		return nil, err
	}
	mission = cruise.MissionNumber
	logger = logger.With("mission", mission)

	result := &Result{
		Mission: mission,
		Skipped: make(map[string]int),
	}

	var sets []*surveymodel.Set
	if err := b.survey.IterateSets(ctx, cruise.ID, func(s *surveymodel.Set) error {
		sets = append(sets, s)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read sets: %w", err)
	}

	batch := &obismodel.Batch{}
	cruiseEvent := newCruiseEvent(cruise, sets)
	batch.Events = append(batch.Events, cruiseEvent)

	for _, set := range sets {
		fishing, err := b.survey.HasFishingOperation(ctx, set.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read operations of set %d: %w", set.SetNumber, err)
		}
		if !fishing {
			logger.Debugw("skipping set without fishing operation", "set", set.SetNumber)
			result.SkippedSets++
			continue
		}

		setEvent := newSetEvent(cruiseEvent, set)
		batch.Events = append(batch.Events, setEvent)

		if err := b.survey.IterateCatches(ctx, set.ID, func(c *surveymodel.Catch) error {
			if c.Species.IsMixedCatch {
				result.Skipped[ReasonMixedCatch]++
				recordSkip(ctx, ReasonMixedCatch)
				return nil
			}

			occurrence, err := newOccurrence(setEvent, c)
			if err != nil {
				if errors.Is(err, ErrInvalidSpecies) {
					logger.Warnw("skipping catch", "set", set.SetNumber, "catch", c.ID, "error", err)
					result.Skipped[ReasonInvalidSpecies]++
					recordSkip(ctx, ReasonInvalidSpecies)
					return nil
				}
				return err
			}

			batch.Occurrences = append(batch.Occurrences, occurrence)
			batch.Measurements = append(batch.Measurements, newCatchMeasurements(occurrence, c)...)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to read catches of set %d: %w", set.SetNumber, err)
		}
	}

	if err := b.obis.ReplaceCruise(ctx, mission, batch); err != nil {
		return nil, fmt.Errorf("failed to write OBIS rows: %w", err)
	}

	result.Events = len(batch.Events)
	result.Occurrences = len(batch.Occurrences)
	result.Measurements = len(batch.Measurements)
	result.Duration = time.Since(start)
	recordBuild(ctx, result)

	logger.Infow("built OBIS rows",
		"events", result.Events,
		"occurrences", result.Occurrences,
		"measurements", result.Measurements,
		"skipped_sets", result.SkippedSets,
		"skipped_catches", result.Skipped)
	return result, nil
}

func (b *Builder) cruise(ctx context.Context, mission string) (*surveymodel.Cruise, error) {
	if mission == "" {
		cruise, err := b.survey.ActiveCruise(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find active cruise: %w", err)
		}
		return cruise, nil
	}

	cruise, err := b.survey.CruiseByMission(ctx, mission)
	if err != nil {
		return nil, fmt.Errorf("failed to find cruise %q: %w", mission, err)
	}
	return cruise, nil
}
