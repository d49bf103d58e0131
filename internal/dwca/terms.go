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

// Package dwca maps OBIS rows to Darwin Core terms and reads and writes Darwin
// Core Archives.
package dwca

import "strings"

// Term is the URI of a Darwin Core, Dublin Core or OBIS term.
type Term string

// Name returns the term's local name, used as the column header.
func (t Term) Name() string {
	s := string(t)
	if i := strings.LastIndexAny(s, "/#"); i >= 0 {
		return s[i+1:]
	}
	return s
}

const (
	dwcNS     = "http://rs.tdwg.org/dwc/terms/"
	dctermsNS = "http://purl.org/dc/terms/"
	obisNS    = "http://rs.iobis.org/obis/terms/"
)

// Event terms.
const (
	TermEventID                       Term = dwcNS + "eventID"
	TermParentEventID                 Term = dwcNS + "parentEventID"
	TermEventDate                     Term = dwcNS + "eventDate"
	TermYear                          Term = dwcNS + "year"
	TermMonth                         Term = dwcNS + "month"
	TermDay                           Term = dwcNS + "day"
	TermDecimalLatitude               Term = dwcNS + "decimalLatitude"
	TermDecimalLongitude              Term = dwcNS + "decimalLongitude"
	TermCoordinatePrecision           Term = dwcNS + "coordinatePrecision"
	TermCoordinateUncertaintyInMeters Term = dwcNS + "coordinateUncertaintyInMeters"
	TermContinent                     Term = dwcNS + "continent"
	TermEventType                     Term = dwcNS + "eventType"
	TermMinimumDepthInMeters          Term = dwcNS + "minimumDepthInMeters"
	TermMaximumDepthInMeters          Term = dwcNS + "maximumDepthInMeters"
	TermFieldNumber                   Term = dwcNS + "fieldNumber"
	TermFootprintWKT                  Term = dwcNS + "footprintWKT"
	TermEventRemarks                  Term = dwcNS + "eventRemarks"
	TermLanguage                      Term = dctermsNS + "language"
	TermLicense                       Term = dctermsNS + "license"
	TermRightsHolder                  Term = dctermsNS + "rightsHolder"
	TermDatasetID                     Term = dwcNS + "datasetID"
	TermDatasetName                   Term = dwcNS + "datasetName"
	TermInstitutionID                 Term = dwcNS + "institutionID"
	TermInstitutionCode               Term = dwcNS + "institutionCode"
)

// Occurrence terms.
const (
	TermOccurrenceID           Term = dwcNS + "occurrenceID"
	TermVerbatimIdentification Term = dwcNS + "verbatimIdentification"
	TermScientificName         Term = dwcNS + "scientificName"
	TermScientificNameID       Term = dwcNS + "scientificNameID"
	TermBasisOfRecord          Term = dwcNS + "basisOfRecord"
	TermOccurrenceStatus       Term = dwcNS + "occurrenceStatus"
	TermAssociatedMedia        Term = dwcNS + "associatedMedia"
	TermTaxonRemarks           Term = dwcNS + "taxonRemarks"
)

// Extended measurement or fact terms.
const (
	TermMeasurementType    Term = dwcNS + "measurementType"
	TermMeasurementTypeID  Term = obisNS + "measurementTypeID"
	TermMeasurementValue   Term = dwcNS + "measurementValue"
	TermMeasurementValueID Term = obisNS + "measurementValueID"
	TermMeasurementUnit    Term = dwcNS + "measurementUnit"
	TermMeasurementRemarks Term = dwcNS + "measurementRemarks"
)

// Row types.
const (
	RowTypeEvent                     = dwcNS + "Event"
	RowTypeOccurrence                = dwcNS + "Occurrence"
	RowTypeExtendedMeasurementOrFact = obisNS + "ExtendedMeasurementOrFact"
)

// FileSpec describes one data file of the archive. Column 0 always holds the
// core event id: the id of the core file, and the coreid of extensions.
type FileSpec struct {
	Name     string
	RowType  string
	Core     bool
	Terms    []Term
	Required []Term
}

// Index returns the column of the term, or -1.
func (f *FileSpec) Index(t Term) int {
	for i, term := range f.Terms {
		if term == t {
			return i
		}
	}
	return -1
}

var (
	EventFile = &FileSpec{
		Name:    "event.txt",
		RowType: RowTypeEvent,
		Core:    true,
		Terms: []Term{
			TermEventID,
			TermParentEventID,
			TermEventDate,
			TermYear,
			TermMonth,
			TermDay,
			TermDecimalLatitude,
			TermDecimalLongitude,
			TermCoordinatePrecision,
			TermCoordinateUncertaintyInMeters,
			TermContinent,
			TermEventType,
			TermMinimumDepthInMeters,
			TermMaximumDepthInMeters,
			TermFieldNumber,
			TermFootprintWKT,
			TermEventRemarks,
			TermLanguage,
			TermLicense,
			TermRightsHolder,
			TermDatasetID,
			TermDatasetName,
			TermInstitutionID,
			TermInstitutionCode,
		},
		Required: []Term{TermEventID, TermEventDate},
	}

	OccurrenceFile = &FileSpec{
		Name:    "occurrence.txt",
		RowType: RowTypeOccurrence,
		Terms: []Term{
			TermEventID,
			TermOccurrenceID,
			TermVerbatimIdentification,
			TermScientificName,
			TermScientificNameID,
			TermBasisOfRecord,
			TermOccurrenceStatus,
			TermAssociatedMedia,
			TermTaxonRemarks,
		},
		Required: []Term{
			TermEventID,
			TermOccurrenceID,
			TermScientificName,
			TermScientificNameID,
			TermBasisOfRecord,
			TermOccurrenceStatus,
		},
	}

	MeasurementFile = &FileSpec{
		Name:    "extendedmeasurementorfact.txt",
		RowType: RowTypeExtendedMeasurementOrFact,
		Terms: []Term{
			TermEventID,
			TermOccurrenceID,
			TermMeasurementType,
			TermMeasurementTypeID,
			TermMeasurementValue,
			TermMeasurementValueID,
			TermMeasurementUnit,
			TermMeasurementRemarks,
		},
		Required: []Term{TermEventID, TermMeasurementType, TermMeasurementValue},
	}

	// Files lists every data file in archive order.
	Files = []*FileSpec{EventFile, OccurrenceFile, MeasurementFile}
)

// FileSpecFor returns the spec of the data file with the given name.
func FileSpecFor(name string) (*FileSpec, bool) {
	for _, f := range Files {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
