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

// Package database reads and writes the OBIS event, occurrence and
// measurement tables.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/pkg/database"

	pgx "github.com/jackc/pgx/v4"
)

// OBISDB is a handle to the OBIS tables.
type OBISDB struct {
	db *database.DB
}

func New(db *database.DB) *OBISDB {
	return &OBISDB{
		db: db,
	}
}

const eventColumns = `
	event_id, parent_event_id, mission,
	event_start, event_start_precision, event_end, event_end_precision,
	decimal_latitude, decimal_longitude, coordinate_precision, coordinate_uncertainty_in_meters,
	continent, event_type, minimum_depth_in_meters, maximum_depth_in_meters,
	field_number, footprint_wkt, event_remarks`

// IterateEvents calls f for every event ordered by event_id. Iteration stops
// at the first error returned by f, and that error is returned wrapped.
func (db *OBISDB) IterateEvents(ctx context.Context, f func(*model.Event) error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("IterateEvents: %w", err)
		}
	}()

	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT`+eventColumns+`
		FROM
			obis_event
		ORDER BY
			event_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanOneEvent(rows)
		if err != nil {
			return err
		}
		if err := f(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// IterateOccurrences calls f for every occurrence ordered by occurrence_id.
func (db *OBISDB) IterateOccurrences(ctx context.Context, f func(*model.Occurrence) error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("IterateOccurrences: %w", err)
		}
	}()

	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT
			occurrence_id, event_id, verbatim_identification, scientific_name, scientific_name_id,
			basis_of_record, occurrence_status, associated_media, taxon_remarks
		FROM
			obis_occurrence
		ORDER BY
			occurrence_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Occurrence
		if err := rows.Scan(&o.OccurrenceID, &o.EventID, &o.VerbatimIdentification, &o.ScientificName,
			&o.ScientificNameID, &o.BasisOfRecord, &o.OccurrenceStatus, &o.AssociatedMedia, &o.TaxonRemarks); err != nil {
			return err
		}
		if err := f(&o); err != nil {
			return err
		}
	}
	return rows.Err()
}

// IterateMeasurements calls f for every measurement ordered by emof_id.
func (db *OBISDB) IterateMeasurements(ctx context.Context, f func(*model.Measurement) error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("IterateMeasurements: %w", err)
		}
	}()

	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT
			emof_id, event_id, occurrence_id, measurement_type, measurement_type_id,
			measurement_value, measurement_value_id, measurement_unit, measurement_remarks
		FROM
			obis_emof
		ORDER BY
			emof_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m            model.Measurement
			occurrenceID *string
		)
		if err := rows.Scan(&m.ID, &m.EventID, &occurrenceID, &m.MeasurementType, &m.MeasurementTypeID,
			&m.MeasurementValue, &m.MeasurementValueID, &m.MeasurementUnit, &m.MeasurementRemarks); err != nil {
			return err
		}
		if occurrenceID != nil {
			m.OccurrenceID = *occurrenceID
		}
		if err := f(&m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetEvent returns the event with the given id, or database.ErrNotFound.
func (db *OBISDB) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT`+eventColumns+`
		FROM
			obis_event
		WHERE
			event_id = $1`, eventID)

	e, err := scanOneEvent(row)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("GetEvent: %w", err)
	}
	return e, nil
}

// ReplaceCruise deletes every row previously built for the mission and
// inserts the batch in its place, in a single serializable transaction.
// Occurrences and measurements are removed with their events.
func (db *OBISDB) ReplaceCruise(ctx context.Context, mission string, batch *model.Batch) error {
	if err := batch.Validate(mission); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	return db.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM
				obis_event
			WHERE
				mission = $1`, mission); err != nil {
			return fmt.Errorf("deleting previous events: %w", err)
		}

		// Parents are inserted before their children.
		for _, e := range sortParentsFirst(batch.Events) {
			if err := insertEvent(ctx, tx, e); err != nil {
				return fmt.Errorf("inserting event %q: %w", e.EventID, err)
			}
		}

		for _, o := range batch.Occurrences {
			if _, err := tx.Exec(ctx, `
				INSERT INTO
					obis_occurrence
					(occurrence_id, event_id, verbatim_identification, scientific_name, scientific_name_id,
					 basis_of_record, occurrence_status, associated_media, taxon_remarks)
				VALUES
					($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				o.OccurrenceID, o.EventID, o.VerbatimIdentification, o.ScientificName, o.ScientificNameID,
				o.BasisOfRecord, o.OccurrenceStatus, o.AssociatedMedia, o.TaxonRemarks); err != nil {
				return fmt.Errorf("inserting occurrence %q: %w", o.OccurrenceID, err)
			}
		}

		for _, m := range batch.Measurements {
			row := tx.QueryRow(ctx, `
				INSERT INTO
					obis_emof
					(event_id, occurrence_id, measurement_type, measurement_type_id,
					 measurement_value, measurement_value_id, measurement_unit, measurement_remarks)
				VALUES
					($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING emof_id`,
				m.EventID, nullString(m.OccurrenceID), m.MeasurementType, m.MeasurementTypeID,
				m.MeasurementValue, m.MeasurementValueID, m.MeasurementUnit, m.MeasurementRemarks)
			if err := row.Scan(&m.ID); err != nil {
				return fmt.Errorf("inserting measurement %q: %w", m.MeasurementType, err)
			}
		}
		return nil
	})
}

// DeleteCruise removes every row built for the mission and returns the number
// of events deleted.
func (db *OBISDB) DeleteCruise(ctx context.Context, mission string) (int64, error) {
	var count int64
	err := db.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			DELETE FROM
				obis_event
			WHERE
				mission = $1`, mission)
		if err != nil {
			return fmt.Errorf("deleting events: %w", err)
		}
		count = result.RowsAffected()
		return nil
	})
	return count, err
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *model.Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO
			obis_event
			(`+eventColumns+`)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.EventID, nullString(e.ParentEventID), e.Mission,
		e.Start, int16(e.StartPrecision), e.End, int16(e.EndPrecision),
		e.DecimalLatitude, e.DecimalLongitude, e.CoordinatePrecision, e.CoordinateUncertaintyInMeters,
		e.Continent, e.EventType, e.MinimumDepthInMeters, e.MaximumDepthInMeters,
		e.FieldNumber, e.FootprintWKT, e.EventRemarks)
	return err
}

func scanOneEvent(row pgx.Row) (*model.Event, error) {
	var (
		e              model.Event
		parent         *string
		start, end     *time.Time
		startPrecision int16
		endPrecision   int16
	)
	if err := row.Scan(&e.EventID, &parent, &e.Mission,
		&start, &startPrecision, &end, &endPrecision,
		&e.DecimalLatitude, &e.DecimalLongitude, &e.CoordinatePrecision, &e.CoordinateUncertaintyInMeters,
		&e.Continent, &e.EventType, &e.MinimumDepthInMeters, &e.MaximumDepthInMeters,
		&e.FieldNumber, &e.FootprintWKT, &e.EventRemarks); err != nil {
		return nil, err
	}
	if parent != nil {
		e.ParentEventID = *parent
	}
	if start != nil {
		t := start.UTC()
		e.Start = &t
	}
	if end != nil {
		t := end.UTC()
		e.End = &t
	}
	e.StartPrecision = model.Precision(startPrecision)
	e.EndPrecision = model.Precision(endPrecision)
	return &e, nil
}

// sortParentsFirst orders events so that every parent precedes its children,
// keeping the input order otherwise.
func sortParentsFirst(events []*model.Event) []*model.Event {
	result := make([]*model.Event, 0, len(events))
	placed := make(map[string]bool, len(events))

	var place func(e *model.Event)
	byID := make(map[string]*model.Event, len(events))
	for _, e := range events {
		byID[e.EventID] = e
	}
	place = func(e *model.Event) {
		if placed[e.EventID] {
			return
		}
		placed[e.EventID] = true
		if p, ok := byID[e.ParentEventID]; ok {
			place(p)
		}
		result = append(result, e)
	}
	for _, e := range events {
		place(e)
	}
	return result
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
