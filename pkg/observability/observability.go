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

// Package observability sets up and configures observability tools.
package observability

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"contrib.go.opencensus.io/integrations/ocsql"
	"go.opencensus.io/plugin/ocgrpc"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
)

var collectedViews = struct {
	views []*view.View
	sync.Mutex
}{}

// CollectViews collects all the OpenCensus views and registers them at a
// later time when the metric exporter is set up. This lets packages declare
// views in init() while the registration errors are still handled in main.
//
// Typical usage:
//
//	func init() {
//		observability.CollectViews(v1, v2)
//	}
func CollectViews(views ...*view.View) {
	collectedViews.Lock()
	defer collectedViews.Unlock()
	collectedViews.views = append(collectedViews.views, views...)
}

// AllViews returns the collected views followed by the HTTP and gRPC client
// and server views, and the SQL views once InstrumentSQLDriver has run.
func AllViews() []*view.View {
	collectedViews.Lock()
	defer collectedViews.Unlock()

	ret := make([]*view.View, 0, len(collectedViews.views)+16)
	ret = append(ret, collectedViews.views...)
	ret = append(ret, ochttp.DefaultServerViews...)
	ret = append(ret, ochttp.DefaultClientViews...)
	ret = append(ret, ocgrpc.DefaultClientViews...)
	if sqlInstrumented() {
		ret = append(ret, ocsql.DefaultViews...)
	}
	return ret
}

// Exporter defines the minimum shared functionality for an observability exporter
// used by this application.
type Exporter interface {
	io.Closer
	StartExporter(ctx context.Context) error
}

// NewFromEnv returns the observability exporter given the provided configuration, or an error
// if it failed to be created.
func NewFromEnv(config *Config) (Exporter, error) {
	// Create a separate ctx. The main ctx is cancelled on interrupt, and
	// sharing it would drop the last batch of metrics.
	ctx := context.Background()

	switch config.ExporterType {
	case ExporterNoop:
		return NewNoop(ctx)
	case ExporterStackdriver:
		return NewStackdriver(ctx, config.Stackdriver)
	case ExporterOCAgent:
		return NewOpenCensus(ctx, config.OpenCensus)
	case ExporterPrometheus:
		return NewPrometheus(ctx, config.Prometheus)
	default:
		return nil, fmt.Errorf("unknown observability exporter type %v", config.ExporterType)
	}
}

// registerViews registers every collected view, skipping those whose name
// starts with one of the excluded prefixes.
func registerViews(excluded []string) error {
	for _, v := range AllViews() {
		if hasAnyPrefix(v.Name, excluded) {
			continue
		}
		if err := view.Register(v); err != nil {
			return fmt.Errorf("view registration failed for %q: %w", v.Name, err)
		}
	}
	return nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
