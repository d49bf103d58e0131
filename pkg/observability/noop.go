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

import (
	"context"
	"fmt"
	"sync"

	"go.opencensus.io/stats/view"
)

var _ Exporter = (*noopExporter)(nil)

// noopExporter collects views without shipping them anywhere. The data stays
// readable in process through view.RetrieveData.
type noopExporter struct {
	mu    sync.Mutex
	views []*view.View
}

// NewNoop creates an exporter that exports nowhere.
func NewNoop(_ context.Context) (Exporter, error) {
	return &noopExporter{}, nil
}

func (e *noopExporter) StartExporter(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := AllViews()
	if err := view.Register(views...); err != nil {
		return fmt.Errorf("failed to register views: %w", err)
	}
	e.views = views
	return nil
}

// Close stops collecting the views registered by StartExporter.
func (e *noopExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	view.Unregister(e.views...)
	e.views = nil
	return nil
}
