// Copyright 2021 the Exposure Notifications Server authors
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

package storage

import (
	"context"
	"time"

	"github.com/andesobis/obis-export/internal/metrics"
	"github.com/andesobis/obis-export/pkg/observability"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const metricPrefix = metrics.MetricRoot + "storage"

// backendTagKey is the BLOBSTORE type an upload went to.
var backendTagKey = tag.MustNewKey("backend")

var (
	mUploadLatencyMs = stats.Float64(metricPrefix+"/upload_latency", "archive upload latency", stats.UnitMilliseconds)
	mUploadBytes     = stats.Int64(metricPrefix+"/upload_bytes", "size of the last uploaded archive", stats.UnitBytes)

	// Tagged REFRESH_FAILED or TOKEN_EXPIRED.
	mAzureTokenErrors = stats.Int64(metricPrefix+"/azure/token_errors", "managed identity token refresh problems", stats.UnitDimensionless)
)

var (
	uploadBytesView = &view.View{
		Name:        metricPrefix + "/upload_bytes",
		Description: "Size of the last archive written, per backend",
		Measure:     mUploadBytes,
		TagKeys:     []tag.Key{backendTagKey},
		Aggregation: view.LastValue(),
	}

	uploadLatencyView = &view.View{
		Name:        metricPrefix + "/upload_latency",
		Description: "Distribution of archive upload latencies",
		Measure:     mUploadLatencyMs,
		TagKeys:     []tag.Key{backendTagKey, observability.ResultTagKey},
		Aggregation: view.Distribution(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000),
	}
)

func init() {
	observability.CollectViews(
		uploadBytesView,
		uploadLatencyView,
		&view.View{
			Name:        metricPrefix + "/azure/token_errors",
			Description: "Number of failed or already expired managed identity token refreshes",
			Measure:     mAzureTokenErrors,
			TagKeys:     []tag.Key{observability.ResultTagKey},
			Aggregation: view.Count(),
		},
	)
}

var _ Blobstore = (*instrumented)(nil)

// instrumented records upload size and latency for the wrapped Blobstore.
// Reads and deletes pass straight through.
type instrumented struct {
	Blobstore
	backend tag.Mutator
}

func instrument(b Blobstore, typ BlobstoreType) Blobstore {
	return &instrumented{
		Blobstore: b,
		backend:   tag.Upsert(backendTagKey, string(typ)),
	}
}

func (s *instrumented) CreateObject(ctx context.Context, parent, name string, contents []byte, contentType string) error {
	result := observability.ResultOK
	defer observability.RecordLatency(ctx, time.Now(), mUploadLatencyMs, &s.backend, &result)

	if err := s.Blobstore.CreateObject(ctx, parent, name, contents, contentType); err != nil {
		result = observability.ResultNotOK
		return err
	}

	_ = stats.RecordWithTags(ctx, []tag.Mutator{s.backend}, mUploadBytes.M(int64(len(contents))))
	return nil
}
