// Copyright 2020 the Exposure Notifications Server authors
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
	"fmt"
	"runtime"

	"github.com/andesobis/obis-export/pkg/logging"

	"contrib.go.opencensus.io/exporter/stackdriver"
	"go.opencensus.io/trace"
	"golang.org/x/oauth2/google"
)

var _ Exporter = (*stackdriverExporter)(nil)

type stackdriverExporter struct {
	exporter *stackdriver.Exporter
	config   *StackdriverConfig
}

// NewStackdriver creates a metrics and trace exporter for Cloud Monitoring and
// Cloud Trace.
func NewStackdriver(ctx context.Context, config *StackdriverConfig) (Exporter, error) {
	logger := logging.FromContext(ctx).Named("stackdriver")

	if config == nil {
		return nil, fmt.Errorf("missing Stackdriver configuration")
	}
	cfg := *config
	if cfg.ProjectID == "" && cfg.DetectProjectID {
		cfg.ProjectID = detectProjectID(ctx)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("missing PROJECT_ID in Stackdriver exporter")
	}

	resource := newMonitoredResource(&cfg, runtimeEnv())
	typ, labels := resource.MonitoredResource()
	logger.Debugw("monitored resource", "type", typ, "labels", labels)

	workers := runtime.NumCPU() - 1
	if workers < 2 {
		workers = 2
	}

	exporter, err := stackdriver.NewExporter(stackdriver.Options{
		Context:                 ctx,
		ProjectID:               cfg.ProjectID,
		UserAgent:               UserAgent,
		MonitoredResource:       resource,
		ReportingInterval:       cfg.ReportingInterval,
		BundleDelayThreshold:    cfg.BundleDelayThreshold,
		BundleCountThreshold:    cfg.BundleCountThreshold,
		Timeout:                 cfg.Timeout,
		NumberOfWorkers:         workers,
		DefaultMonitoringLabels: &stackdriver.Labels{},
		OnError: func(err error) {
			logger.Errorw("failed to export to stackdriver", "error", err, "resource", typ)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Stackdriver exporter: %w", err)
	}

	return &stackdriverExporter{
		exporter: exporter,
		config:   &cfg,
	}, nil
}

// detectProjectID returns the project of the Application Default
// Credentials, or "" when there are none.
func detectProjectID(ctx context.Context) string {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		logging.FromContext(ctx).Named("stackdriver").
			Debugw("no default credentials to take the project from", "error", err)
		return ""
	}
	return creds.ProjectID
}

// StartExporter registers the views and the trace exporter.
func (e *stackdriverExporter) StartExporter(_ context.Context) error {
	if err := registerViews(e.config.ExcludedMetricPrefixes); err != nil {
		return fmt.Errorf("failed to start stackdriver exporter: %w", err)
	}
	if err := e.exporter.StartMetricsExporter(); err != nil {
		return fmt.Errorf("failed to start stackdriver exporter: %w", err)
	}

	trace.ApplyConfig(trace.Config{
		DefaultSampler: trace.ProbabilitySampler(e.config.SampleRate),
	})
	trace.RegisterExporter(e.exporter)
	return nil
}

// Close flushes pending data and halts the exporter.
func (e *stackdriverExporter) Close() error {
	trace.UnregisterExporter(e.exporter)
	e.exporter.Flush()
	e.exporter.StopMetricsExporter()
	return nil
}
