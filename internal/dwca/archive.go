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
	"io"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrMissingDescriptor is returned when an archive has no meta.xml.
var ErrMissingDescriptor = errors.New("archive has no " + MetaFile)

// Table is a parsed data file.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Column returns the values of the term in every row, using the descriptor's
// field mapping.
func (t *Table) Column(fs *MetaFileSet, term Term) ([]string, bool) {
	idx := -1
	for _, f := range fs.Fields {
		if Term(f.Term) == term {
			idx = f.Index
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx >= 0 && idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, true
}

// Archive is a parsed Darwin Core Archive.
type Archive struct {
	Meta *Meta
	EML  []byte

	// Tables holds every data file found in the zip, by entry name.
	Tables map[string]*Table
}

// Unmarshal parses a zip archive.
func Unmarshal(b []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("can't read archive: %w", err)
	}

	a := &Archive{Tables: make(map[string]*Table)}
	for _, f := range zr.File {
		contents, err := readEntry(f)
		if err != nil {
			return nil, err
		}

		switch f.Name {
		case MetaFile:
			if a.Meta, err = unmarshalMeta(contents); err != nil {
				return nil, err
			}
		case EMLFile:
			a.EML = contents
		default:
			a.Tables[f.Name] = decodeTable(f.Name, contents)
		}
	}

	if a.Meta == nil {
		return nil, ErrMissingDescriptor
	}
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", f.Name, err)
	}
	return b, nil
}

func decodeTable(name string, b []byte) *Table {
	t := &Table{Name: name}

	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return t
	}

	t.Header = strings.Split(lines[0], "\t")
	for _, line := range lines[1:] {
		t.Rows = append(t.Rows, strings.Split(line, "\t"))
	}
	return t
}

// Counts returns the number of rows in each data file.
func (a *Archive) Counts() map[string]int {
	counts := make(map[string]int, len(a.Tables))
	for name, t := range a.Tables {
		counts[name] = len(t.Rows)
	}
	return counts
}

// Validate checks the archive for structural problems: descriptor entries
// without files, files without descriptor entries, rows with the wrong column
// count, empty required terms, and extension rows referencing a missing core
// row. All problems are returned together.
func (a *Archive) Validate() error {
	var result *multierror.Error

	if a.Meta.Core == nil {
		result = multierror.Append(result, errors.New("descriptor has no core"))
	}
	if len(a.EML) == 0 {
		result = multierror.Append(result, fmt.Errorf("archive has no %s", EMLFile))
	}

	described := make(map[string]bool)
	for _, fs := range a.Meta.Files() {
		described[fs.Location] = true
	}

	var names []string
	for name := range a.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !described[name] {
			result = multierror.Append(result, fmt.Errorf("%s is not referenced by %s", name, MetaFile))
		}
	}

	var coreIDs map[string]struct{}
	if core := a.Meta.Core; core != nil {
		if t, ok := a.Tables[core.Location]; ok && core.ID != nil {
			coreIDs = make(map[string]struct{}, len(t.Rows))
			for _, row := range t.Rows {
				if core.ID.Index >= 0 && core.ID.Index < len(row) {
					coreIDs[row[core.ID.Index]] = struct{}{}
				}
			}
		}
	}

	for _, fs := range a.Meta.Files() {
		t, ok := a.Tables[fs.Location]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s references missing file %s", MetaFile, fs.Location))
			continue
		}
		if err := validateTable(fs, t, coreIDs); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func validateTable(fs *MetaFileSet, t *Table, coreIDs map[string]struct{}) error {
	var result *multierror.Error

	width := len(fs.Fields)
	if fs.IgnoreHeaderLines > 0 && len(t.Header) != width {
		result = multierror.Append(result, fmt.Errorf("%s: header has %d columns, descriptor has %d",
			t.Name, len(t.Header), width))
	}

	var required []Term
	if spec, ok := FileSpecFor(fs.Location); ok {
		required = spec.Required
	}

	for i, row := range t.Rows {
		line := i + 1 + fs.IgnoreHeaderLines
		if len(row) != width {
			result = multierror.Append(result, fmt.Errorf("%s:%d: has %d columns, want %d", t.Name, line, len(row), width))
			continue
		}
		for _, term := range required {
			for _, f := range fs.Fields {
				if Term(f.Term) == term && f.Index >= 0 && f.Index < len(row) && strings.TrimSpace(row[f.Index]) == "" {
					result = multierror.Append(result, fmt.Errorf("%s:%d: %s is empty", t.Name, line, term.Name()))
				}
			}
		}
		if fs.CoreID != nil && coreIDs != nil && fs.CoreID.Index >= 0 && fs.CoreID.Index < len(row) {
			if _, ok := coreIDs[row[fs.CoreID.Index]]; !ok {
				result = multierror.Append(result, fmt.Errorf("%s:%d: core id %q does not exist", t.Name, line, row[fs.CoreID.Index]))
			}
		}
	}
	return result.ErrorOrNil()
}
