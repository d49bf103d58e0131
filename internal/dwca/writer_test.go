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

package dwca

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func eventRow(id string) Row {
	return Row{
		TermEventID:   id,
		TermEventDate: "2023-09-01",
		TermLanguage:  "En",
	}
}

func entryNames(tb testing.TB, b []byte) []string {
	tb.Helper()

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		tb.Fatal(err)
	}
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

func TestWriter_Empty(t *testing.T) {
	t.Parallel()

	b, err := NewWriter(testDataset()).Marshal()
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{MetaFile, EMLFile, EventFile.Name}, entryNames(t, b)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	archive, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := archive.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(archive.Meta.Extensions) != 0 {
		t.Errorf("expected no extensions, got %d", len(archive.Meta.Extensions))
	}

	events := archive.Tables[EventFile.Name]
	if len(events.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(events.Rows))
	}
	if got, want := len(events.Header), len(EventFile.Terms); got != want {
		t.Errorf("expected %d header columns, got %d", want, got)
	}
}

func TestWriter_OnlyWrittenFilesDescribed(t *testing.T) {
	t.Parallel()

	w := NewWriter(testDataset())
	if err := w.Append(EventFile, eventRow("cruise")); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(MeasurementFile, Row{
		TermEventID:          "cruise",
		TermMeasurementType:  "Bottom temperature",
		TermMeasurementValue: "1.5",
	}); err != nil {
		t.Fatal(err)
	}

	b, err := w.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{MetaFile, EMLFile, EventFile.Name, MeasurementFile.Name}, entryNames(t, b)); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	archive, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := archive.Validate(); err != nil {
		t.Fatal(err)
	}

	var locations []string
	for _, fs := range archive.Meta.Files() {
		locations = append(locations, fs.Location)
	}
	if diff := cmp.Diff([]string{EventFile.Name, MeasurementFile.Name}, locations); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	ext := archive.Meta.Extensions[0]
	if ext.RowType != RowTypeExtendedMeasurementOrFact || ext.CoreID == nil || ext.CoreID.Index != 0 {
		t.Errorf("unexpected extension %#v", ext)
	}
	if got, want := ext.FieldsTerminatedBy, `\t`; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
	if diff := cmp.Diff(MeasurementFile.Terms, ext.Terms()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestWriter_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() []byte {
		w := NewWriter(testDataset())
		for _, id := range []string{"cruise", "cruise-001", "cruise-002"} {
			if err := w.Append(EventFile, eventRow(id)); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Append(OccurrenceFile, Row{
			TermEventID:      "cruise-001",
			TermOccurrenceID: "cruise-001-catch-1",
		}); err != nil {
			t.Fatal(err)
		}
		b, err := w.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	first, second := build(), build()
	if !bytes.Equal(first, second) {
		t.Errorf("expected identical archives, got %d and %d bytes", len(first), len(second))
	}
}

func TestWriter_Sanitizes(t *testing.T) {
	t.Parallel()

	w := NewWriter(testDataset())
	row := eventRow("cruise")
	row[TermEventRemarks] = "rough\tsea\r\nnet torn\nlate"
	if err := w.Append(EventFile, row); err != nil {
		t.Fatal(err)
	}

	b, err := w.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	archive, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := archive.Validate(); err != nil {
		t.Fatal(err)
	}

	remarks, ok := archive.Tables[EventFile.Name].Column(archive.Meta.Core, TermEventRemarks)
	if !ok {
		t.Fatal("expected eventRemarks column")
	}
	if diff := cmp.Diff([]string{"rough sea net torn late"}, remarks); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestWriter_AppendErrors(t *testing.T) {
	t.Parallel()

	w := NewWriter(testDataset())

	if err := w.Append(&FileSpec{Name: "taxon.txt"}, Row{}); err == nil {
		t.Errorf("expected unknown file error")
	}
	if err := w.Append(OccurrenceFile, Row{TermFootprintWKT: "POINT(0 0)"}); err == nil {
		t.Errorf("expected unknown term error")
	}
	if got := w.Count(OccurrenceFile); got != 0 {
		t.Errorf("expected no rows, got %d", got)
	}
}

func TestWriter_EML(t *testing.T) {
	t.Parallel()

	b, err := NewWriter(testDataset()).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	archive, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}

	eml := string(archive.EML)
	for _, want := range []string{
		`<eml:eml xmlns:eml="eml://ecoinformatics.org/eml-2.1.1"`,
		`packageId="` + packageID(testDataset()) + `"`,
		`<title>Ecosystem survey trawl catches</title>`,
		`<pubDate>2024-01-15</pubDate>`,
		`<language>en</language>`,
	} {
		if !strings.Contains(eml, want) {
			t.Errorf("expected eml.xml to contain %q:\n%s", want, eml)
		}
	}
}
