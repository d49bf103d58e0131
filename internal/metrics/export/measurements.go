// Copyright 2020 Google LLC
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

// Package export contains the OpenCensus measures recorded while writing an
// archive.
package export

import (
	"github.com/andesobis/obis-export/internal/metrics"

	"go.opencensus.io/stats"
)

var exportMetricsPrefix = metrics.MetricRoot + "export/"

var (
	RowsWritten = stats.Int64(exportMetricsPrefix+"rows_written",
		"Number of rows written to archive data files", stats.UnitDimensionless)
	RowsDropped = stats.Int64(exportMetricsPrefix+"rows_dropped",
		"Number of source rows excluded for missing or invalid required terms", stats.UnitDimensionless)
	ArchiveBytes = stats.Int64(exportMetricsPrefix+"archive_bytes",
		"Size of the written archive", stats.UnitBytes)
	ExportLatencyMs = stats.Float64(exportMetricsPrefix+"latency",
		"Duration of an export run", stats.UnitMilliseconds)
)
