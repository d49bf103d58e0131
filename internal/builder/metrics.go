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
	"context"

	buildermetrics "github.com/andesobis/obis-export/internal/metrics/builder"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

func recordSkip(ctx context.Context, reason string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(buildermetrics.ReasonTagKey, reason)},
		buildermetrics.CatchesSkipped.M(1))
}

func recordBuild(ctx context.Context, r *Result) {
	stats.Record(ctx,
		buildermetrics.EventsCreated.M(int64(r.Events)),
		buildermetrics.OccurrencesCreated.M(int64(r.Occurrences)))
}
