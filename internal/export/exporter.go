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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andesobis/obis-export/internal/dwca"
	exportmetrics "github.com/andesobis/obis-export/internal/metrics/export"
	obisdb "github.com/andesobis/obis-export/internal/obis/database"
	"github.com/andesobis/obis-export/internal/obis/model"
	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/observability"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
)

// Source streams the OBIS tables.
type Source interface {
	IterateEvents(ctx context.Context, f func(*model.Event) error) error
	IterateOccurrences(ctx context.Context, f func(*model.Occurrence) error) error
	IterateMeasurements(ctx context.Context, f func(*model.Measurement) error) error
}

var _ Source = (*obisdb.OBISDB)(nil)

// FileSummary counts the rows of one data file.
type FileSummary struct {
	Written int `json:"written"`
	Dropped int `json:"dropped"`
}

// Summary describes a finished export.
type Summary struct {
	Bucket   string                  `json:"bucket"`
	Object   string                  `json:"object"`
	Files    map[string]*FileSummary `json:"files"`
	Bytes    int                     `json:"bytes"`
	SHA256   string                  `json:"sha256"`
	Duration time.Duration           `json:"duration"`
}

// Exporter reads the OBIS tables, maps every row to Darwin Core terms and
// writes the resulting archive to the blobstore.
type Exporter struct {
	source    Source
	blobstore storage.Blobstore
	config    *Config
}

// NewExporter creates an exporter.
func NewExporter(source Source, blobstore storage.Blobstore, config *Config) *Exporter {
	return &Exporter{
		source:    source,
		blobstore: blobstore,
		config:    config,
	}
}

// run holds the state of a single export.
type run struct {
	logger  *zap.SugaredLogger
	writer  *dwca.Writer
	summary *Summary

	events      map[string]struct{}
	occurrences map[string]struct{}
}

// Run performs one export. Records that fail validation are logged, counted
// and left out of the archive, together with the occurrences and measurements
// that refer to them. Any other error aborts the run before anything is
// written.
func (e *Exporter) Run(ctx context.Context) (_ *Summary, retErr error) {
	start := time.Now()
	result := observability.ResultOK
	defer func() {
		if retErr != nil {
			result = observability.ResultNotOK
		}
		observability.RecordLatency(ctx, start, exportmetrics.ExportLatencyMs, &result)
	}()

	r := &run{
		logger: logging.FromContext(ctx).Named("export.Run"),
		writer: dwca.NewWriter(&e.config.Dataset),
		summary: &Summary{
			Bucket: e.config.Bucket,
			Object: e.config.Filename,
			Files:  make(map[string]*FileSummary, len(dwca.Files)),
		},
		events:      make(map[string]struct{}),
		occurrences: make(map[string]struct{}),
	}
	for _, f := range dwca.Files {
		r.summary.Files[f.Name] = &FileSummary{}
	}

	if err := r.exportEvents(ctx, e.source, &e.config.Dataset); err != nil {
		return nil, err
	}
	if err := r.exportOccurrences(ctx, e.source); err != nil {
		return nil, err
	}
	if err := r.exportMeasurements(ctx, e.source); err != nil {
		return nil, err
	}

	b, err := r.writer.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal archive: %w", err)
	}

	// A cancelled run must not replace the previous archive.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export cancelled: %w", err)
	}

	if err := e.blobstore.CreateObject(ctx, e.config.Bucket, e.config.Filename, b, storage.ContentTypeZip); err != nil {
		return nil, fmt.Errorf("failed to write %s/%s: %w", e.config.Bucket, e.config.Filename, err)
	}

	sum := sha256.Sum256(b)
	r.summary.Bytes = len(b)
	r.summary.SHA256 = hex.EncodeToString(sum[:])
	r.summary.Duration = time.Since(start)

	r.record(ctx)
	r.logger.Infow("wrote archive",
		"bucket", r.summary.Bucket,
		"object", r.summary.Object,
		"bytes", r.summary.Bytes,
		"sha256", r.summary.SHA256,
		"files", r.summary.Files)
	return r.summary, nil
}

// exportEvents maps every event. Events are read in id order, which says
// nothing about hierarchy, so rows are held until every dropped event is
// known and then the descendants of dropped events are dropped as well.
func (r *run) exportEvents(ctx context.Context, src Source, ds *dwca.DatasetConfig) error {
	type mapped struct {
		id     string
		parent string
		row    dwca.Row
	}
	var rows []*mapped
	dropped := make(map[string]struct{})

	if err := src.IterateEvents(ctx, func(ev *model.Event) error {
		row, err := dwca.MapEvent(ev, ds)
		if err != nil {
			if err := r.invalid(dwca.EventFile, ev.EventID, err); err != nil {
				return err
			}
			dropped[ev.EventID] = struct{}{}
			return nil
		}
		rows = append(rows, &mapped{id: ev.EventID, parent: ev.ParentEventID, row: row})
		return nil
	}); err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	for changed := len(dropped) > 0; changed; {
		changed = false
		for _, m := range rows {
			if _, ok := dropped[m.id]; ok || m.parent == "" {
				continue
			}
			if _, ok := dropped[m.parent]; ok {
				r.orphan(dwca.EventFile, m.id, "parent event "+m.parent+" was dropped")
				dropped[m.id] = struct{}{}
				changed = true
			}
		}
	}

	for _, m := range rows {
		if _, ok := dropped[m.id]; ok {
			continue
		}
		if err := r.append(dwca.EventFile, m.row); err != nil {
			return err
		}
		r.events[m.id] = struct{}{}
	}
	return nil
}

func (r *run) exportOccurrences(ctx context.Context, src Source) error {
	if err := src.IterateOccurrences(ctx, func(o *model.Occurrence) error {
		row, err := dwca.MapOccurrence(o)
		if err != nil {
			return r.invalid(dwca.OccurrenceFile, o.OccurrenceID, err)
		}
		if _, ok := r.events[o.EventID]; !ok {
			r.orphan(dwca.OccurrenceFile, o.OccurrenceID, "event "+o.EventID+" is not in the archive")
			return nil
		}
		if err := r.append(dwca.OccurrenceFile, row); err != nil {
			return err
		}
		r.occurrences[o.OccurrenceID] = struct{}{}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to read occurrences: %w", err)
	}
	return nil
}

func (r *run) exportMeasurements(ctx context.Context, src Source) error {
	if err := src.IterateMeasurements(ctx, func(m *model.Measurement) error {
		id := strconv.FormatInt(m.ID, 10)
		row, err := dwca.MapMeasurement(m)
		if err != nil {
			return r.invalid(dwca.MeasurementFile, id, err)
		}
		if _, ok := r.events[m.EventID]; !ok {
			r.orphan(dwca.MeasurementFile, id, "event "+m.EventID+" is not in the archive")
			return nil
		}
		if m.OccurrenceID != "" {
			if _, ok := r.occurrences[m.OccurrenceID]; !ok {
				r.orphan(dwca.MeasurementFile, id, "occurrence "+m.OccurrenceID+" is not in the archive")
				return nil
			}
		}
		return r.append(dwca.MeasurementFile, row)
	}); err != nil {
		return fmt.Errorf("failed to read measurements: %w", err)
	}
	return nil
}

func (r *run) append(f *dwca.FileSpec, row dwca.Row) error {
	if err := r.writer.Append(f, row); err != nil {
		return err
	}
	r.summary.Files[f.Name].Written++
	return nil
}

// invalid drops a record that failed validation. Errors other than validation
// errors are returned unchanged.
func (r *run) invalid(f *dwca.FileSpec, id string, err error) error {
	var verr *dwca.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	terms := make([]string, 0, len(verr.Terms))
	for _, t := range verr.Terms {
		terms = append(terms, t.Name())
	}
	r.logger.Warnw("dropping invalid record",
		"file", f.Name,
		"id", id,
		"terms", terms,
		"error", verr.Unwrap())
	r.summary.Files[f.Name].Dropped++
	return nil
}

func (r *run) orphan(f *dwca.FileSpec, id, reason string) {
	r.logger.Warnw("dropping orphaned record",
		"file", f.Name,
		"id", id,
		"reason", reason)
	r.summary.Files[f.Name].Dropped++
}

func (r *run) record(ctx context.Context) {
	for name, fs := range r.summary.Files {
		mutators := []tag.Mutator{tag.Upsert(observability.FileTagKey, name)}
		if err := stats.RecordWithTags(ctx, mutators,
			exportmetrics.RowsWritten.M(int64(fs.Written)),
			exportmetrics.RowsDropped.M(int64(fs.Dropped))); err != nil {
			r.logger.Warnw("failed to record row metrics", "file", name, "error", err)
		}
	}
	stats.Record(ctx, exportmetrics.ArchiveBytes.M(int64(r.summary.Bytes)))
}
