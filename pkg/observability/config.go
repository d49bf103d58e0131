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

package observability

import "time"

// ExporterType represents a type of observability exporter.
type ExporterType string

const (
	ExporterStackdriver ExporterType = "STACKDRIVER"
	ExporterPrometheus  ExporterType = "PROMETHEUS"
	ExporterOCAgent     ExporterType = "OCAGENT"
	ExporterNoop        ExporterType = "NOOP"
)

// Config holds all of the configuration options for the observability exporter.
type Config struct {
	ExporterType ExporterType `env:"OBSERVABILITY_EXPORTER, default=NOOP"`

	OpenCensus  *OpenCensusConfig
	Prometheus  *PrometheusConfig
	Stackdriver *StackdriverConfig
}

// OpenCensusConfig holds the configuration options for the open census
// agent exporter.
type OpenCensusConfig struct {
	SampleRate float64 `env:"TRACE_PROBABILITY, default=0.1"`

	Insecure bool   `env:"OCAGENT_INSECURE"`
	Endpoint string `env:"OCAGENT_ENDPOINT"`

	ServiceName     string        `env:"OCAGENT_SERVICE_NAME, default=obis-export"`
	ReconnectPeriod time.Duration `env:"OCAGENT_RECONNECT_PERIOD, default=5s"`
}

// PrometheusConfig holds the configuration options for the prometheus pull
// exporter.
type PrometheusConfig struct {
	Namespace string `env:"PROMETHEUS_NAMESPACE, default=obis_export"`
	Port      string `env:"METRICS_PORT, default=9090"`
	Path      string `env:"METRICS_PATH, default=/metrics"`
}

// StackdriverConfig holds the configuration options for the stackdriver exporter.
type StackdriverConfig struct {
	SampleRate float64 `env:"TRACE_PROBABILITY, default=0.1"`

	// ProjectID falls back to the Application Default Credentials project
	// when DetectProjectID is set.
	ProjectID       string `env:"PROJECT_ID, default=$GOOGLE_CLOUD_PROJECT"`
	DetectProjectID bool   `env:"STACKDRIVER_DETECT_PROJECT, default=true"`

	// Cloud Run container contract, used to label the monitored resource.
	Service   string `env:"K_SERVICE"`
	Revision  string `env:"K_REVISION"`
	Namespace string `env:"K_CONFIGURATION, default=obis-export"`

	// Location labels the resource when it can't be discovered, e.g. when
	// running a one-off export from a workstation.
	Location string `env:"STACKDRIVER_LOCATION, default=unknown"`

	// The following options are mostly for tuning the metrics reporting
	// behavior. ReportingInterval should be >=60s as stackdriver enforces a
	// 60s minimal interval.
	ReportingInterval    time.Duration `env:"STACKDRIVER_REPORTING_INTERVAL, default=2m"`
	BundleDelayThreshold time.Duration `env:"STACKDRIVER_BUNDLE_DELAY_THRESHOLD, default=2s"`
	BundleCountThreshold int           `env:"STACKDRIVER_BUNDLE_COUNT_THRESHOLD, default=50"`
	Timeout              time.Duration `env:"STACKDRIVER_TIMEOUT, default=5s"`

	ExcludedMetricPrefixes []string `env:"STACKDRIVER_EXCLUDED_METRIC_PREFIXES"`
}
