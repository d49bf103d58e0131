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

// Package model defines the rows stored in the OBIS database: events,
// occurrences and extended measurements or facts.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Precision is the resolution at which an event datetime is known.
type Precision int16

const (
	PrecisionYear Precision = iota + 1
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
	PrecisionMillisecond

	// DefaultPrecision is used when a datetime carries no explicit precision.
	DefaultPrecision = PrecisionSecond
)

var precisionLayouts = map[Precision]string{
	PrecisionYear:        "2006",
	PrecisionMonth:       "2006-01",
	PrecisionDay:         "2006-01-02",
	PrecisionHour:        "2006-01-02T15Z07:00",
	PrecisionMinute:      "2006-01-02T15:04Z07:00",
	PrecisionSecond:      "2006-01-02T15:04:05Z07:00",
	PrecisionMillisecond: "2006-01-02T15:04:05.000Z07:00",
}

var precisionNames = map[Precision]string{
	PrecisionYear:        "year",
	PrecisionMonth:       "month",
	PrecisionDay:         "day",
	PrecisionHour:        "hour",
	PrecisionMinute:      "minute",
	PrecisionSecond:      "second",
	PrecisionMillisecond: "millisecond",
}

// Valid reports whether p is a known precision.
func (p Precision) Valid() bool {
	_, ok := precisionLayouts[p]
	return ok
}

func (p Precision) String() string {
	if n, ok := precisionNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Precision(%d)", int16(p))
}

// FormatDateTime renders t in UTC as an ISO-8601 string truncated to the
// given precision.
func FormatDateTime(t time.Time, p Precision) (string, error) {
	layout, ok := precisionLayouts[p]
	if !ok {
		return "", fmt.Errorf("unknown datetime precision %d", p)
	}
	return t.UTC().Format(layout), nil
}

// Controlled vocabulary for dwc:basisOfRecord.
const (
	BasisPreservedSpecimen  = "PreservedSpecimen"
	BasisFossilSpecimen     = "FossilSpecimen"
	BasisLivingSpecimen     = "LivingSpecimen"
	BasisMaterialSample     = "MaterialSample"
	BasisMaterialCitation   = "MaterialCitation"
	BasisHumanObservation   = "HumanObservation"
	BasisMachineObservation = "MachineObservation"
	BasisOccurrence         = "Occurrence"
)

var basisOfRecord = map[string]struct{}{
	BasisPreservedSpecimen:  {},
	BasisFossilSpecimen:     {},
	BasisLivingSpecimen:     {},
	BasisMaterialSample:     {},
	BasisMaterialCitation:   {},
	BasisHumanObservation:   {},
	BasisMachineObservation: {},
	BasisOccurrence:         {},
}

// ValidBasisOfRecord reports whether s is in the basisOfRecord vocabulary.
func ValidBasisOfRecord(s string) bool {
	_, ok := basisOfRecord[s]
	return ok
}

// Controlled vocabulary for dwc:occurrenceStatus.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// ValidOccurrenceStatus reports whether s is in the occurrenceStatus
// vocabulary.
func ValidOccurrenceStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent
}

const wormsLSIDPrefix = "urn:lsid:marinespecies.org:taxname:"

// ScientificNameID returns the WoRMS LSID for the given AphiaID.
func ScientificNameID(aphiaID int) string {
	return wormsLSIDPrefix + strconv.Itoa(aphiaID)
}

// Event is a dwc:Event row. A cruise is stored as a top level event and each
// fishing set as its child.
type Event struct {
	EventID       string
	ParentEventID string
	Mission       string

	Start          *time.Time
	StartPrecision Precision
	End            *time.Time
	EndPrecision   Precision

	DecimalLatitude               *float64
	DecimalLongitude              *float64
	CoordinatePrecision           *float64
	CoordinateUncertaintyInMeters *float64

	Continent            string
	EventType            string
	MinimumDepthInMeters *float64
	MaximumDepthInMeters *float64
	FieldNumber          string
	FootprintWKT         string
	EventRemarks         string
}

// EventDate returns dwc:eventDate. When the event has an end, the result is an
// ISO-8601 interval of start and end, each at its own precision. It returns
// the empty string when the start is unknown.
func (e *Event) EventDate() (string, error) {
	if e.Start == nil {
		return "", nil
	}

	start, err := FormatDateTime(*e.Start, e.StartPrecision)
	if err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	if e.End == nil {
		return start, nil
	}

	end, err := FormatDateTime(*e.End, e.EndPrecision)
	if err != nil {
		return "", fmt.Errorf("end: %w", err)
	}
	return start + "/" + end, nil
}

// Year returns dwc:year, or the empty string when the start is unknown.
func (e *Event) Year() string {
	if e.Start == nil {
		return ""
	}
	return strconv.Itoa(e.Start.UTC().Year())
}

// Month returns dwc:month when the start is known at least to the month.
func (e *Event) Month() string {
	if e.Start == nil || e.StartPrecision < PrecisionMonth {
		return ""
	}
	return strconv.Itoa(int(e.Start.UTC().Month()))
}

// Day returns dwc:day when the start is known at least to the day.
func (e *Event) Day() string {
	if e.Start == nil || e.StartPrecision < PrecisionDay {
		return ""
	}
	return strconv.Itoa(e.Start.UTC().Day())
}

// Occurrence is a dwc:Occurrence row belonging to an event.
type Occurrence struct {
	OccurrenceID           string
	EventID                string
	VerbatimIdentification string
	ScientificName         string
	ScientificNameID       string
	BasisOfRecord          string
	OccurrenceStatus       string
	AssociatedMedia        string
	TaxonRemarks           string
}

// Measurement is an extended measurement or fact. OccurrenceID is empty for
// measurements about the event itself.
type Measurement struct {
	ID                 int64
	EventID            string
	OccurrenceID       string
	MeasurementType    string
	MeasurementTypeID  string
	MeasurementValue   string
	MeasurementValueID string
	MeasurementUnit    string
	MeasurementRemarks string
}

// Batch is the full set of rows produced for one cruise.
type Batch struct {
	Events       []*Event
	Occurrences  []*Occurrence
	Measurements []*Measurement
}

// Validate checks that every row in the batch belongs to the given mission and
// that every reference resolves within the batch.
func (b *Batch) Validate(mission string) error {
	if mission == "" {
		return errors.New("mission is required")
	}

	events := make(map[string]struct{}, len(b.Events))
	for _, e := range b.Events {
		if e.EventID == "" {
			return errors.New("event is missing an id")
		}
		if e.Mission != mission {
			return fmt.Errorf("event %q belongs to mission %q, not %q", e.EventID, e.Mission, mission)
		}
		if !e.StartPrecision.Valid() || !e.EndPrecision.Valid() {
			return fmt.Errorf("event %q has an invalid datetime precision", e.EventID)
		}
		if _, ok := events[e.EventID]; ok {
			return fmt.Errorf("duplicate event %q", e.EventID)
		}
		events[e.EventID] = struct{}{}
	}
	for _, e := range b.Events {
		if e.ParentEventID == "" {
			continue
		}
		if _, ok := events[e.ParentEventID]; !ok {
			return fmt.Errorf("event %q references unknown parent %q", e.EventID, e.ParentEventID)
		}
	}

	occurrences := make(map[string]struct{}, len(b.Occurrences))
	for _, o := range b.Occurrences {
		if _, ok := events[o.EventID]; !ok {
			return fmt.Errorf("occurrence %q references unknown event %q", o.OccurrenceID, o.EventID)
		}
		if _, ok := occurrences[o.OccurrenceID]; ok {
			return fmt.Errorf("duplicate occurrence %q", o.OccurrenceID)
		}
		occurrences[o.OccurrenceID] = struct{}{}
	}

	for _, m := range b.Measurements {
		if _, ok := events[m.EventID]; !ok {
			return fmt.Errorf("measurement %q references unknown event %q", m.MeasurementType, m.EventID)
		}
		if m.OccurrenceID == "" {
			continue
		}
		if _, ok := occurrences[m.OccurrenceID]; !ok {
			return fmt.Errorf("measurement %q references unknown occurrence %q", m.MeasurementType, m.OccurrenceID)
		}
	}
	return nil
}
