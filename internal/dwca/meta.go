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
	"encoding/xml"
	"fmt"
)

const (
	MetaFile = "meta.xml"
	EMLFile  = "eml.xml"

	metaNamespace = "http://rs.tdwg.org/dwc/text/"

	// Separators are written as escape sequences, as the text guidelines
	// require.
	fieldsTerminatedBy = `\t`
	linesTerminatedBy  = `\n`
)

// Meta is the archive descriptor, meta.xml.
type Meta struct {
	XMLName    xml.Name       `xml:"http://rs.tdwg.org/dwc/text/ archive"`
	Metadata   string         `xml:"metadata,attr,omitempty"`
	Core       *MetaFileSet   `xml:"core"`
	Extensions []*MetaFileSet `xml:"extension"`
}

// MetaFileSet describes the core or one extension.
type MetaFileSet struct {
	Encoding           string      `xml:"encoding,attr"`
	FieldsTerminatedBy string      `xml:"fieldsTerminatedBy,attr"`
	LinesTerminatedBy  string      `xml:"linesTerminatedBy,attr"`
	FieldsEnclosedBy   string      `xml:"fieldsEnclosedBy,attr"`
	IgnoreHeaderLines  int         `xml:"ignoreHeaderLines,attr"`
	RowType            string      `xml:"rowType,attr"`
	Location           string      `xml:"files>location"`
	ID                 *MetaIndex  `xml:"id"`
	CoreID             *MetaIndex  `xml:"coreid"`
	Fields             []MetaField `xml:"field"`
}

type MetaIndex struct {
	Index int `xml:"index,attr"`
}

type MetaField struct {
	Index int    `xml:"index,attr"`
	Term  string `xml:"term,attr"`
}

// Terms returns the terms of the file set by column.
func (m *MetaFileSet) Terms() []Term {
	terms := make([]Term, len(m.Fields))
	for _, f := range m.Fields {
		if f.Index >= 0 && f.Index < len(terms) {
			terms[f.Index] = Term(f.Term)
		}
	}
	return terms
}

// Files returns the core followed by the extensions.
func (m *Meta) Files() []*MetaFileSet {
	files := make([]*MetaFileSet, 0, 1+len(m.Extensions))
	if m.Core != nil {
		files = append(files, m.Core)
	}
	return append(files, m.Extensions...)
}

// newMeta builds the descriptor for the given files. The core file must be
// among them.
func newMeta(files []*FileSpec) (*Meta, error) {
	meta := &Meta{Metadata: EMLFile}

	for _, f := range files {
		fs := &MetaFileSet{
			Encoding:           "UTF-8",
			FieldsTerminatedBy: fieldsTerminatedBy,
			LinesTerminatedBy:  linesTerminatedBy,
			FieldsEnclosedBy:   "",
			IgnoreHeaderLines:  1,
			RowType:            f.RowType,
			Location:           f.Name,
			Fields:             make([]MetaField, len(f.Terms)),
		}
		for i, t := range f.Terms {
			fs.Fields[i] = MetaField{Index: i, Term: string(t)}
		}

		if f.Core {
			if meta.Core != nil {
				return nil, fmt.Errorf("more than one core file: %s, %s", meta.Core.Location, f.Name)
			}
			fs.ID = &MetaIndex{Index: 0}
			meta.Core = fs
			continue
		}
		fs.CoreID = &MetaIndex{Index: 0}
		meta.Extensions = append(meta.Extensions, fs)
	}

	if meta.Core == nil {
		return nil, fmt.Errorf("archive has no core file")
	}
	return meta, nil
}

func (m *Meta) marshal() ([]byte, error) {
	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", MetaFile, err)
	}
	return append([]byte(xml.Header), append(b, '\n')...), nil
}

func unmarshalMeta(b []byte) (*Meta, error) {
	var m Meta
	if err := xml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", MetaFile, err)
	}
	for _, fs := range m.Files() {
		if err := fs.checkIndexes(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", MetaFile, fs.Location, err)
		}
	}
	return &m, nil
}

// checkIndexes rejects column indexes outside the file set's field list.
func (m *MetaFileSet) checkIndexes() error {
	width := len(m.Fields)
	inRange := func(i int) bool { return i >= 0 && i < width }

	if m.ID != nil && !inRange(m.ID.Index) {
		return fmt.Errorf("id index %d out of range [0, %d)", m.ID.Index, width)
	}
	if m.CoreID != nil && !inRange(m.CoreID.Index) {
		return fmt.Errorf("coreid index %d out of range [0, %d)", m.CoreID.Index, width)
	}
	for _, f := range m.Fields {
		if !inRange(f.Index) {
			return fmt.Errorf("field %s index %d out of range [0, %d)", f.Term, f.Index, width)
		}
	}
	return nil
}
