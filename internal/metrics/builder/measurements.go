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

// Package builder contains the OpenCensus measures recorded while building
// OBIS rows from survey data.
package builder

import (
	"github.com/andesobis/obis-export/internal/metrics"

	"go.opencensus.io/stats"
)

var builderMetricsPrefix = metrics.MetricRoot + "builder/"

var (
	EventsCreated = stats.Int64(builderMetricsPrefix+"events_created",
		"Number of OBIS events created", stats.UnitDimensionless)
	OccurrencesCreated = stats.Int64(builderMetricsPrefix+"occurrences_created",
		"Number of OBIS occurrences created", stats.UnitDimensionless)
	CatchesSkipped = stats.Int64(builderMetricsPrefix+"catches_skipped",
		"Number of catches skipped for mixed or unidentified species", stats.UnitDimensionless)
)
