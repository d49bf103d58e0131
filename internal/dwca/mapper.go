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

package dwca

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/internal/project"

	"github.com/hashicorp/go-multierror"
)

// Row is one mapped record, keyed by term.
type Row map[Term]string

// Values returns the row's values in the file's column order. Terms the row
// does not carry become empty columns.
func (r Row) Values(f *FileSpec) []string {
	values := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		values[i] = r[t]
	}
	return values
}

// ValidationError lists every term of a record that failed validation.
type ValidationError struct {
	File  string
	ID    string
	Terms []Term

	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		names[i] = t.Name()
	}
	return fmt.Sprintf("%s record %q is invalid (%s): %s",
		e.File, e.ID, strings.Join(names, ", "), e.errs.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.errs.ErrorOrNil()
}

// validator collects term failures for one record.
type validator struct {
	file string
	id   string

	terms []Term
	errs  *multierror.Error
}

func (v *validator) fail(t Term, format string, args ...interface{}) {
	v.terms = append(v.terms, t)
	v.errs = multierror.Append(v.errs, fmt.Errorf("%s: %s", t.Name(), fmt.Sprintf(format, args...)))
}

func (v *validator) required(row Row, terms ...Term) {
	for _, t := range terms {
		if project.CleanText(row[t]) == "" {
			v.fail(t, "required")
		}
	}
}

func (v *validator) err() error {
	if v.errs == nil {
		return nil
	}
	v.errs.ErrorFormat = func(errs []error) string {
		s := make([]string, len(errs))
		for i, err := range errs {
			s[i] = err.Error()
		}
		return strings.Join(s, "; ")
	}
	return &ValidationError{
		File:  v.file,
		ID:    v.id,
		Terms: v.terms,
		errs:  v.errs,
	}
}

// MapEvent maps an event to an event.txt row. The row is nil when the error
// is non-nil.
func MapEvent(e *model.Event, ds *DatasetConfig) (Row, error) {
	v := &validator{file: EventFile.Name, id: e.EventID}

	row := Row{
		TermEventID:                       e.EventID,
		TermParentEventID:                 e.ParentEventID,
		TermYear:                          e.Year(),
		TermMonth:                         e.Month(),
		TermDay:                           e.Day(),
		TermDecimalLatitude:               formatFloat(e.DecimalLatitude),
		TermDecimalLongitude:              formatFloat(e.DecimalLongitude),
		TermCoordinatePrecision:           formatFloat(e.CoordinatePrecision),
		TermCoordinateUncertaintyInMeters: formatFloat(e.CoordinateUncertaintyInMeters),
		TermContinent:                     e.Continent,
		TermEventType:                     e.EventType,
		TermMinimumDepthInMeters:          formatFloat(e.MinimumDepthInMeters),
		TermMaximumDepthInMeters:          formatFloat(e.MaximumDepthInMeters),
		TermFieldNumber:                   e.FieldNumber,
		TermFootprintWKT:                  e.FootprintWKT,
		TermEventRemarks:                  e.EventRemarks,
		TermLanguage:                      ds.Language,
		TermLicense:                       ds.License,
		TermRightsHolder:                  ds.RightsHolder,
		TermDatasetID:                     ds.DatasetID,
		TermDatasetName:                   ds.DatasetName,
		TermInstitutionID:                 ds.InstitutionID,
		TermInstitutionCode:               ds.InstitutionCode,
	}

	date, err := e.EventDate()
	if err != nil {
		v.fail(TermEventDate, "%s", err)
	} else {
		row[TermEventDate] = date
		v.required(row, TermEventDate)
	}
	v.required(row, TermEventID)

	switch {
	case (e.DecimalLatitude == nil) != (e.DecimalLongitude == nil):
		v.fail(TermDecimalLatitude, "latitude and longitude must be given together")
	case e.DecimalLatitude != nil:
		if lat := *e.DecimalLatitude; !(lat >= -90 && lat <= 90) {
			v.fail(TermDecimalLatitude, "%v is out of range", lat)
		}
		if lon := *e.DecimalLongitude; !(lon >= -180 && lon <= 180) {
			v.fail(TermDecimalLongitude, "%v is out of range", lon)
		}
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return row, nil
}

// MapOccurrence maps an occurrence to an occurrence.txt row.
func MapOccurrence(o *model.Occurrence) (Row, error) {
	v := &validator{file: OccurrenceFile.Name, id: o.OccurrenceID}

	row := Row{
		TermEventID:                o.EventID,
		TermOccurrenceID:           o.OccurrenceID,
		TermVerbatimIdentification: o.VerbatimIdentification,
		TermScientificName:         o.ScientificName,
		TermScientificNameID:       o.ScientificNameID,
		TermBasisOfRecord:          o.BasisOfRecord,
		TermOccurrenceStatus:       o.OccurrenceStatus,
		TermAssociatedMedia:        o.AssociatedMedia,
		TermTaxonRemarks:           o.TaxonRemarks,
	}

	v.required(row, TermEventID, TermOccurrenceID, TermScientificName, TermScientificNameID)
	if !model.ValidBasisOfRecord(o.BasisOfRecord) {
		v.fail(TermBasisOfRecord, "%q is not in the controlled vocabulary", o.BasisOfRecord)
	}
	if !model.ValidOccurrenceStatus(o.OccurrenceStatus) {
		v.fail(TermOccurrenceStatus, "%q is not in the controlled vocabulary", o.OccurrenceStatus)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return row, nil
}

// MapMeasurement maps a measurement to an extendedmeasurementorfact.txt row.
func MapMeasurement(m *model.Measurement) (Row, error) {
	id := m.OccurrenceID
	if id == "" {
		id = m.EventID
	}
	v := &validator{file: MeasurementFile.Name, id: id + "/" + m.MeasurementType}

	row := Row{
		TermEventID:            m.EventID,
		TermOccurrenceID:       m.OccurrenceID,
		TermMeasurementType:    m.MeasurementType,
		TermMeasurementTypeID:  m.MeasurementTypeID,
		TermMeasurementValue:   m.MeasurementValue,
		TermMeasurementValueID: m.MeasurementValueID,
		TermMeasurementUnit:    m.MeasurementUnit,
		TermMeasurementRemarks: m.MeasurementRemarks,
	}

	v.required(row, MeasurementFile.Required...)

	if err := v.err(); err != nil {
		return nil, err
	}
	return row, nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
