// Copyright 2021 Google LLC
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

package observability

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

var (
	// ResultTagKey contains a free format text describing the result of an
	// operation. Preferably ALL CAPS WITH UNDERSCORE, OK for success.
	ResultTagKey = tag.MustNewKey("result")

	// FileTagKey names the archive data file a row measure refers to.
	FileTagKey = tag.MustNewKey("file")
)

var (
	// ResultOK adds a tag indicating the operation succeeded.
	ResultOK = tag.Upsert(ResultTagKey, "OK")
	// ResultNotOK adds a tag indicating the operation failed.
	ResultNotOK = ResultError("NOT_OK")
)

// ResultError adds a tag with the given string as the result.
func ResultError(result string) tag.Mutator {
	return tag.Upsert(ResultTagKey, result)
}

// BuildInfo is the interface to provide build information.
type BuildInfo interface {
	ID() string
	Tag() string
}

// RecordLatency calculates and records the latency in milliseconds.
//
//	defer observability.RecordLatency(ctx, time.Now(), mLatencyMs, &result)
func RecordLatency(ctx context.Context, start time.Time, m *stats.Float64Measure, mutators ...*tag.Mutator) {
	additional := make([]tag.Mutator, 0, len(mutators))
	for _, t := range mutators {
		additional = append(additional, *t)
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	_ = stats.RecordWithTags(ctx, additional, m.M(latency))
}
