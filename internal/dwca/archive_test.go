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
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildZip writes the entries in the given order.
func buildZip(tb testing.TB, entries ...[2]string) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := zw.Create(e[0])
		if err != nil {
			tb.Fatal(err)
		}
		if _, err := f.Write([]byte(e[1])); err != nil {
			tb.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

func validArchive(tb testing.TB) map[string]string {
	tb.Helper()

	w := NewWriter(testDataset())
	if err := w.Append(EventFile, eventRow("cruise")); err != nil {
		tb.Fatal(err)
	}
	if err := w.Append(OccurrenceFile, Row{
		TermEventID:          "cruise",
		TermOccurrenceID:     "cruise-catch-1",
		TermScientificName:   "Gadus morhua",
		TermScientificNameID: "urn:lsid:marinespecies.org:taxname:126436",
		TermBasisOfRecord:    "HumanObservation",
		TermOccurrenceStatus: "present",
	}); err != nil {
		tb.Fatal(err)
	}
	b, err := w.Marshal()
	if err != nil {
		tb.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		tb.Fatal(err)
	}
	entries := make(map[string]string)
	for _, f := range zr.File {
		contents, err := readEntry(f)
		if err != nil {
			tb.Fatal(err)
		}
		entries[f.Name] = string(contents)
	}
	return entries
}

func TestUnmarshal_MissingDescriptor(t *testing.T) {
	t.Parallel()

	entries := validArchive(t)
	b := buildZip(t,
		[2]string{EMLFile, entries[EMLFile]},
		[2]string{EventFile.Name, entries[EventFile.Name]})

	if _, err := Unmarshal(b); !errors.Is(err, ErrMissingDescriptor) {
		t.Errorf("expected %v to be %v", err, ErrMissingDescriptor)
	}
}

func TestUnmarshal_NotZip(t *testing.T) {
	t.Parallel()

	if _, err := Unmarshal([]byte("eventID\tyear\n")); err == nil {
		t.Errorf("expected error")
	}
}

func TestArchive_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(entries map[string]string) [][2]string
		errs   []string
	}{
		{
			name: "valid",
			mutate: func(e map[string]string) [][2]string {
				return [][2]string{
					{MetaFile, e[MetaFile]}, {EMLFile, e[EMLFile]},
					{EventFile.Name, e[EventFile.Name]}, {OccurrenceFile.Name, e[OccurrenceFile.Name]},
				}
			},
		},
		{
			name: "missing_file",
			mutate: func(e map[string]string) [][2]string {
				return [][2]string{
					{MetaFile, e[MetaFile]}, {EMLFile, e[EMLFile]},
					{EventFile.Name, e[EventFile.Name]},
				}
			},
			errs: []string{"references missing file occurrence.txt"},
		},
		{
			name: "undescribed_file",
			mutate: func(e map[string]string) [][2]string {
				return [][2]string{
					{MetaFile, e[MetaFile]}, {EMLFile, e[EMLFile]},
					{EventFile.Name, e[EventFile.Name]}, {OccurrenceFile.Name, e[OccurrenceFile.Name]},
					{"taxon.txt", "taxonID\n"},
				}
			},
			errs: []string{"taxon.txt is not referenced"},
		},
		{
			name: "dangling_core_id",
			mutate: func(e map[string]string) [][2]string {
				occ := strings.Replace(e[OccurrenceFile.Name], "cruise\tcruise-catch-1", "other\tcruise-catch-1", 1)
				return [][2]string{
					{MetaFile, e[MetaFile]}, {EMLFile, e[EMLFile]},
					{EventFile.Name, e[EventFile.Name]}, {OccurrenceFile.Name, occ},
				}
			},
			errs: []string{`core id "other" does not exist`},
		},
		{
			name: "empty_required_and_short_row",
			mutate: func(e map[string]string) [][2]string {
				occ := strings.Replace(e[OccurrenceFile.Name], "Gadus morhua", "", 1)
				occ += "cruise\tshort\n"
				return [][2]string{
					{MetaFile, e[MetaFile]}, {EMLFile, e[EMLFile]},
					{EventFile.Name, e[EventFile.Name]}, {OccurrenceFile.Name, occ},
				}
			},
			errs: []string{
				"occurrence.txt:2: scientificName is empty",
				"occurrence.txt:3: has 2 columns",
			},
		},
		{
			name: "missing_eml",
			mutate: func(e map[string]string) [][2]string {
				return [][2]string{
					{MetaFile, e[MetaFile]},
					{EventFile.Name, e[EventFile.Name]}, {OccurrenceFile.Name, e[OccurrenceFile.Name]},
				}
			},
			errs: []string{"archive has no eml.xml"},
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := buildZip(t, tc.mutate(validArchive(t))...)
			archive, err := Unmarshal(b)
			if err != nil {
				t.Fatal(err)
			}

			err = archive.Validate()
			if len(tc.errs) == 0 {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tc.errs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected %q to contain %q", err, want)
				}
			}
		})
	}
}

func TestUnmarshal_ColumnIndexes(t *testing.T) {
	t.Parallel()

	const core = `<core encoding="UTF-8" ignoreHeaderLines="1" rowType="http://rs.tdwg.org/dwc/terms/Event">` +
		`<files><location>event.txt</location></files>` +
		`<id index="%s"/>` +
		`<field index="%s" term="http://rs.tdwg.org/dwc/terms/eventID"/>` +
		`</core>`
	const extension = `<extension encoding="UTF-8" ignoreHeaderLines="1" rowType="http://rs.tdwg.org/dwc/terms/Occurrence">` +
		`<files><location>occurrence.txt</location></files>` +
		`<coreid index="%s"/>` +
		`<field index="0" term="http://rs.tdwg.org/dwc/terms/eventID"/>` +
		`</extension>`

	meta := func(id, field, coreID string) string {
		return `<archive xmlns="http://rs.tdwg.org/dwc/text/" metadata="eml.xml">` +
			fmt.Sprintf(core, id, field) + fmt.Sprintf(extension, coreID) +
			`</archive>`
	}

	cases := []struct {
		name string
		meta string
		err  string
	}{
		{name: "valid", meta: meta("0", "0", "0")},
		{name: "negative_id", meta: meta("-1", "0", "0"), err: "id index -1"},
		{name: "negative_field", meta: meta("0", "-1", "0"), err: "index -1 out of range"},
		{name: "field_past_end", meta: meta("0", "3", "0"), err: "index 3 out of range"},
		{name: "negative_coreid", meta: meta("0", "0", "-1"), err: "coreid index -1"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := buildZip(t,
				[2]string{MetaFile, tc.meta},
				[2]string{EMLFile, "<eml/>"},
				[2]string{"event.txt", "eventID\ncruise\n"},
				[2]string{"occurrence.txt", "eventID\ncruise\n"})

			archive, err := Unmarshal(b)
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error containing %q, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if err := archive.Validate(); err != nil {
				t.Fatal(err)
			}
		})
	}
}
