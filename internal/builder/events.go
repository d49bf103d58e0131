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
	"fmt"
	"math"
	"strconv"
	"time"

	obismodel "github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/internal/project"
	surveymodel "github.com/andesobis/obis-export/internal/survey/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
)

const (
	EventTypeSurvey = "Survey"
	EventTypeSample = "Sample"

	MeasurementSpecimenCount   = "Number of specimens"
	MeasurementSpecimenCountID = "http://vocab.nerc.ac.uk/collection/P01/current/OCOUNT01/"
	MeasurementWeight          = "Weight"
	MeasurementWeightID        = "http://vocab.nerc.ac.uk/collection/S06/current/S0600088/"

	UnitIndividuals = "individuals"
	UnitKilogram    = "kg"
)

// SetEventID returns the event id of a set within the mission.
func SetEventID(mission string, setNumber int) string {
	return fmt.Sprintf("%s-%03d", mission, setNumber)
}

// OccurrenceID returns the occurrence id of a catch within a set event.
func OccurrenceID(setEventID string, catchID int64) string {
	return setEventID + "-catch-" + strconv.FormatInt(catchID, 10)
}

func startPoint(s *surveymodel.Set) (orb.Point, bool) {
	if !s.HasStart() {
		return orb.Point{}, false
	}
	return orb.Point{*s.StartLongitude, *s.StartLatitude}, true
}

func endPoint(s *surveymodel.Set) (orb.Point, bool) {
	if !s.HasEnd() {
		return orb.Point{}, false
	}
	return orb.Point{*s.EndLongitude, *s.EndLatitude}, true
}

// newCruiseEvent creates the top level event. Its footprint is the bounding
// box of every set position, with the box centre as coordinates. Missing
// cruise dates fall back to the earliest and latest set dates.
func newCruiseEvent(c *surveymodel.Cruise, sets []*surveymodel.Set) *obismodel.Event {
	e := &obismodel.Event{
		EventID:        c.MissionNumber,
		Mission:        c.MissionNumber,
		Start:          c.StartDate,
		StartPrecision: obismodel.PrecisionDay,
		End:            c.EndDate,
		EndPrecision:   obismodel.PrecisionDay,
		EventType:      EventTypeSurvey,
		EventRemarks:   c.Description,
	}

	var (
		points     orb.MultiPoint
		start, end *time.Time
	)
	for _, s := range sets {
		if p, ok := startPoint(s); ok {
			points = append(points, p)
		}
		if p, ok := endPoint(s); ok {
			points = append(points, p)
		}
		if s.StartDate != nil && (start == nil || s.StartDate.Before(*start)) {
			start = s.StartDate
		}
		last := s.EndDate
		if last == nil {
			last = s.StartDate
		}
		if last != nil && (end == nil || last.After(*end)) {
			end = last
		}
	}

	if e.Start == nil {
		e.Start = start
	}
	if e.End == nil {
		e.End = end
	}

	if len(points) > 0 {
		bound := points.Bound()
		center := bound.Center()
		e.DecimalLatitude = round(center.Lat(), 6)
		e.DecimalLongitude = round(center.Lon(), 6)
		e.CoordinateUncertaintyInMeters = round(geo.Distance(bound.Min, bound.Max)/2, 1)
		e.FootprintWKT = wkt.MarshalString(bound.ToPolygon())
	}
	return e
}

// newSetEvent creates the child event of a fishing set, located at the start
// of the tow with the tow line as footprint.
func newSetEvent(parent *obismodel.Event, s *surveymodel.Set) *obismodel.Event {
	e := &obismodel.Event{
		EventID:        SetEventID(parent.Mission, s.SetNumber),
		ParentEventID:  parent.EventID,
		Mission:        parent.Mission,
		Start:          s.StartDate,
		StartPrecision: obismodel.DefaultPrecision,
		End:            s.EndDate,
		EndPrecision:   obismodel.DefaultPrecision,
		EventType:      EventTypeSample,
		FieldNumber:    strconv.Itoa(s.SetNumber),
		EventRemarks:   s.Remarks,
	}

	start, hasStart := startPoint(s)
	end, hasEnd := endPoint(s)
	switch {
	case hasStart && hasEnd:
		e.DecimalLatitude = round(start.Lat(), 6)
		e.DecimalLongitude = round(start.Lon(), 6)
		e.CoordinateUncertaintyInMeters = round(geo.Distance(start, end)/2, 1)
		e.FootprintWKT = wkt.MarshalString(orb.LineString{start, end})
	case hasStart:
		e.DecimalLatitude = round(start.Lat(), 6)
		e.DecimalLongitude = round(start.Lon(), 6)
		e.FootprintWKT = wkt.MarshalString(start)
	}

	switch {
	case s.StartDepth != nil && s.EndDepth != nil:
		e.MinimumDepthInMeters = round(math.Min(*s.StartDepth, *s.EndDepth), 3)
		e.MaximumDepthInMeters = round(math.Max(*s.StartDepth, *s.EndDepth), 3)
	case s.StartDepth != nil:
		e.MinimumDepthInMeters = round(*s.StartDepth, 3)
		e.MaximumDepthInMeters = round(*s.StartDepth, 3)
	case s.EndDepth != nil:
		e.MinimumDepthInMeters = round(*s.EndDepth, 3)
		e.MaximumDepthInMeters = round(*s.EndDepth, 3)
	}
	return e
}

// newOccurrence creates the occurrence of a catch. A catch with a count and
// weight of zero records an absence.
func newOccurrence(setEvent *obismodel.Event, c *surveymodel.Catch) (*obismodel.Occurrence, error) {
	sp := c.Species
	name := project.CleanName(sp.ScientificName)
	if sp.AphiaID == nil {
		return nil, fmt.Errorf("%w: %q has no AphiaID", ErrInvalidSpecies, name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: species %d has no scientific name", ErrInvalidSpecies, sp.ID)
	}

	status := obismodel.StatusPresent
	if isZero(c) {
		status = obismodel.StatusAbsent
	}

	return &obismodel.Occurrence{
		OccurrenceID:           OccurrenceID(setEvent.EventID, c.ID),
		EventID:                setEvent.EventID,
		VerbatimIdentification: project.CleanText(sp.ScientificName),
		ScientificName:         name,
		ScientificNameID:       obismodel.ScientificNameID(*sp.AphiaID),
		BasisOfRecord:          obismodel.BasisHumanObservation,
		OccurrenceStatus:       status,
		TaxonRemarks:           project.CleanText(c.Notes),
	}, nil
}

func isZero(c *surveymodel.Catch) bool {
	if c.SpecimenCount == nil && c.WeightKg == nil {
		return false
	}
	return (c.SpecimenCount == nil || *c.SpecimenCount == 0) &&
		(c.WeightKg == nil || *c.WeightKg == 0)
}

// newCatchMeasurements records the count and weight of a catch, when known.
func newCatchMeasurements(o *obismodel.Occurrence, c *surveymodel.Catch) []*obismodel.Measurement {
	var ms []*obismodel.Measurement
	if c.SpecimenCount != nil {
		ms = append(ms, &obismodel.Measurement{
			EventID:           o.EventID,
			OccurrenceID:      o.OccurrenceID,
			MeasurementType:   MeasurementSpecimenCount,
			MeasurementTypeID: MeasurementSpecimenCountID,
			MeasurementValue:  strconv.Itoa(*c.SpecimenCount),
			MeasurementUnit:   UnitIndividuals,
		})
	}
	if c.WeightKg != nil {
		ms = append(ms, &obismodel.Measurement{
			EventID:           o.EventID,
			OccurrenceID:      o.OccurrenceID,
			MeasurementType:   MeasurementWeight,
			MeasurementTypeID: MeasurementWeightID,
			MeasurementValue:  strconv.FormatFloat(*c.WeightKg, 'f', -1, 64),
			MeasurementUnit:   UnitKilogram,
		})
	}
	return ms
}

func round(f float64, places int) *float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(f*p) / p
	return &r
}
