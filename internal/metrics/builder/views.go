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
	"github.com/andesobis/obis-export/internal/metrics"
	"github.com/andesobis/obis-export/pkg/observability"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// ReasonTagKey says why a catch was skipped.
var ReasonTagKey = tag.MustNewKey("reason")

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metrics.MetricRoot + "builder/events_created_count",
			Description: "Total OBIS events created",
			Measure:     EventsCreated,
			Aggregation: view.Sum(),
		},
		{
			Name:        metrics.MetricRoot + "builder/occurrences_created_count",
			Description: "Total OBIS occurrences created",
			Measure:     OccurrencesCreated,
			Aggregation: view.Sum(),
		},
		{
			Name:        metrics.MetricRoot + "builder/catches_skipped_count",
			Description: "Total catches skipped, by reason",
			Measure:     CatchesSkipped,
			TagKeys:     []tag.Key{ReasonTagKey},
			Aggregation: view.Sum(),
		},
	}...)
}
