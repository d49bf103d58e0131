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

package export

import (
	"github.com/andesobis/obis-export/internal/metrics"
	"github.com/andesobis/obis-export/pkg/observability"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metrics.MetricRoot + "export/rows_written_count",
			Description: "Total rows written, by data file",
			Measure:     RowsWritten,
			TagKeys:     []tag.Key{observability.FileTagKey},
			Aggregation: view.Sum(),
		},
		{
			Name:        metrics.MetricRoot + "export/rows_dropped_count",
			Description: "Total rows dropped, by data file",
			Measure:     RowsDropped,
			TagKeys:     []tag.Key{observability.FileTagKey},
			Aggregation: view.Sum(),
		},
		{
			Name:        metrics.MetricRoot + "export/archive_bytes_last",
			Description: "Size of the most recent archive",
			Measure:     ArchiveBytes,
			Aggregation: view.LastValue(),
		},
		{
			Name:        metrics.MetricRoot + "export/latency",
			Description: "Distribution of export run latency in ms",
			Measure:     ExportLatencyMs,
			TagKeys:     []tag.Key{observability.ResultTagKey},
			Aggregation: view.Distribution(0, 100, 500, 1000, 5000, 10000, 30000, 60000, 300000),
		},
	}...)
}
