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

// Package database reads cruises, sets and catches from the upstream survey
// database. It never writes.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/andesobis/obis-export/internal/survey/model"
	"github.com/andesobis/obis-export/pkg/database"

	pgx "github.com/jackc/pgx/v4"
)

var (
	// ErrNoActiveCruise is returned when no cruise is flagged as active.
	ErrNoActiveCruise = errors.New("no active cruise")

	// ErrMultipleActiveCruises is returned when more than one cruise is
	// flagged as active and the mission must be given explicitly.
	ErrMultipleActiveCruises = errors.New("more than one active cruise")
)

type SurveyDB struct {
	db *database.DB
}

func New(db *database.DB) *SurveyDB {
	return &SurveyDB{
		db: db,
	}
}

const cruiseColumns = `
	id, mission_number, description, start_date, end_date, is_active`

// ActiveCruise returns the cruise flagged as active.
func (db *SurveyDB) ActiveCruise(ctx context.Context) (*model.Cruise, error) {
	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT`+cruiseColumns+`
		FROM
			shared_models_cruise
		WHERE
			is_active
		ORDER BY
			id
		LIMIT 2`)
	if err != nil {
		return nil, fmt.Errorf("ActiveCruise: %w", err)
	}
	defer rows.Close()

	var cruises []*model.Cruise
	for rows.Next() {
		c, err := scanOneCruise(rows)
		if err != nil {
			return nil, fmt.Errorf("ActiveCruise: %w", err)
		}
		cruises = append(cruises, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ActiveCruise: %w", err)
	}

	switch len(cruises) {
	case 0:
		return nil, ErrNoActiveCruise
	case 1:
		return cruises[0], nil
	default:
		return nil, ErrMultipleActiveCruises
	}
}

// CruiseByMission returns the cruise with the given mission number, or
// database.ErrNotFound.
func (db *SurveyDB) CruiseByMission(ctx context.Context, mission string) (*model.Cruise, error) {
	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT`+cruiseColumns+`
		FROM
			shared_models_cruise
		WHERE
			mission_number = $1`, mission)

	c, err := scanOneCruise(row)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("CruiseByMission: %w", err)
	}
	return c, nil
}

// IterateSets calls f for each set of the cruise, ordered by set number.
func (db *SurveyDB) IterateSets(ctx context.Context, cruiseID int64, f func(*model.Set) error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("IterateSets(%d): %w", cruiseID, err)
		}
	}()

	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT
			id, cruise_id, set_number, station, start_date, end_date,
			start_latitude, start_longitude, end_latitude, end_longitude,
			start_depth_m, end_depth_m, remarks
		FROM
			shared_models_set
		WHERE
			cruise_id = $1
		ORDER BY
			set_number, id`, cruiseID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Set
		if err := rows.Scan(&s.ID, &s.CruiseID, &s.SetNumber, &s.Station, &s.StartDate, &s.EndDate,
			&s.StartLatitude, &s.StartLongitude, &s.EndLatitude, &s.EndLongitude,
			&s.StartDepth, &s.EndDepth, &s.Remarks); err != nil {
			return err
		}
		if err := f(&s); err != nil {
			return err
		}
	}
	return rows.Err()
}

// HasFishingOperation reports whether any operation recorded for the set is a
// fishing operation.
func (db *SurveyDB) HasFishingOperation(ctx context.Context, setID int64) (bool, error) {
	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	var fishing bool
	if err := conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT
				1
			FROM
				shared_models_set_operations so
			JOIN
				shared_models_operation o ON o.id = so.operation_id
			WHERE
				so.set_id = $1 AND o.is_fishing
		)`, setID).Scan(&fishing); err != nil {
		return false, fmt.Errorf("HasFishingOperation(%d): %w", setID, err)
	}
	return fishing, nil
}

// IterateCatches calls f for each catch of the set with its species, ordered
// by catch id.
func (db *SurveyDB) IterateCatches(ctx context.Context, setID int64, f func(*model.Catch) error) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("IterateCatches(%d): %w", setID, err)
		}
	}()

	conn, err := db.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT
			c.id, c.set_id, c.specimen_count, c.weight_kg, c.notes,
			s.id, s.scientific_name, s.common_name_en, s.aphia_id, s.is_mixed_catch
		FROM
			ecosystem_survey_catch c
		JOIN
			shared_models_species s ON s.id = c.species_id
		WHERE
			c.set_id = $1
		ORDER BY
			c.id`, setID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Catch
		if err := rows.Scan(&c.ID, &c.SetID, &c.SpecimenCount, &c.WeightKg, &c.Notes,
			&c.Species.ID, &c.Species.ScientificName, &c.Species.CommonNameEN,
			&c.Species.AphiaID, &c.Species.IsMixedCatch); err != nil {
			return err
		}
		if err := f(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanOneCruise(row pgx.Row) (*model.Cruise, error) {
	var c model.Cruise
	if err := row.Scan(&c.ID, &c.MissionNumber, &c.Description, &c.StartDate, &c.EndDate, &c.IsActive); err != nil {
		return nil, err
	}
	return &c, nil
}
