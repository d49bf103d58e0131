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

// Package model defines the upstream survey records read by the builder.
package model

import "time"

// Cruise is a survey mission.
type Cruise struct {
	ID            int64
	MissionNumber string
	Description   string
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      bool
}

// Set is one trawl deployment of a cruise.
type Set struct {
	ID        int64
	CruiseID  int64
	SetNumber int
	Station   string

	StartDate *time.Time
	EndDate   *time.Time

	StartLatitude  *float64
	StartLongitude *float64
	EndLatitude    *float64
	EndLongitude   *float64

	StartDepth *float64
	EndDepth   *float64

	Remarks string
}

// HasStart reports whether the starting position is known.
func (s *Set) HasStart() bool {
	return s.StartLatitude != nil && s.StartLongitude != nil
}

// HasEnd reports whether the ending position is known.
func (s *Set) HasEnd() bool {
	return s.EndLatitude != nil && s.EndLongitude != nil
}

// Species is a taxon in the survey's species list. AphiaID is nil when the
// species has not been matched to WoRMS.
type Species struct {
	ID             int64
	ScientificName string
	CommonNameEN   string
	AphiaID        *int
	IsMixedCatch   bool
}

// Catch is the quantity of one species caught in a set.
type Catch struct {
	ID            int64
	SetID         int64
	Species       Species
	SpecimenCount *int
	WeightKg      *float64
	Notes         string
}
