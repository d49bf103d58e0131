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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/andesobis/obis-export/pkg/logging"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/gorilla/mux"
)

var _ Exporter = (*prometheusExporter)(nil)

// prometheusExporter serves the registered views on a scrape endpoint.
type prometheusExporter struct {
	exporter *prometheus.Exporter
	config   *PrometheusConfig
	server   *http.Server
}

// NewPrometheus creates a pull exporter listening on config.Port.
func NewPrometheus(_ context.Context, config *PrometheusConfig) (Exporter, error) {
	if config == nil {
		config = &PrometheusConfig{Namespace: "obis_export", Port: "9090", Path: "/metrics"}
	}

	exporter, err := prometheus.NewExporter(prometheus.Options{
		Namespace: config.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return &prometheusExporter{
		exporter: exporter,
		config:   config,
	}, nil
}

// StartExporter registers the views and starts the scrape server in the
// background.
func (e *prometheusExporter) StartExporter(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("prometheus")

	if err := registerViews(nil); err != nil {
		return fmt.Errorf("failed to start prometheus exporter: %w", err)
	}

	r := mux.NewRouter()
	r.Handle(e.config.Path, e.exporter)

	listener, err := net.Listen("tcp", ":"+e.config.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics port %s: %w", e.config.Port, err)
	}

	e.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Debugw("serving metrics", "port", e.config.Port, "path", e.config.Path)
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server stopped", "error", err)
		}
	}()

	return nil
}

// Close stops the scrape server.
func (e *prometheusExporter) Close() error {
	if e.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}
	return nil
}
