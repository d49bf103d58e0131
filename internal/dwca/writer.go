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
	"fmt"
	"strings"
	"time"
)

// modTime is stamped on every entry so that identical rows produce identical
// archives.
var modTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

var sanitizer = strings.NewReplacer("\t", " ", "\r\n", " ", "\r", " ", "\n", " ")

// Writer accumulates mapped rows and marshals them into a Darwin Core Archive.
// The core file is always written; extensions only when they have rows.
type Writer struct {
	dataset *DatasetConfig
	rows    map[*FileSpec][][]string
}

// NewWriter creates a writer for the dataset.
func NewWriter(ds *DatasetConfig) *Writer {
	return &Writer{
		dataset: ds,
		rows:    make(map[*FileSpec][][]string, len(Files)),
	}
}

// Append adds a row to the named data file.
func (w *Writer) Append(file *FileSpec, row Row) error {
	f, ok := FileSpecFor(file.Name)
	if !ok {
		return fmt.Errorf("unknown archive file %q", file.Name)
	}
	for t := range row {
		if f.Index(t) < 0 {
			return fmt.Errorf("%s has no column for term %s", f.Name, t)
		}
	}
	w.rows[f] = append(w.rows[f], row.Values(f))
	return nil
}

// Count returns the number of rows appended to the file.
func (w *Writer) Count(f *FileSpec) int {
	return len(w.rows[f])
}

// written returns the files that go into the archive, in archive order.
func (w *Writer) written() []*FileSpec {
	var files []*FileSpec
	for _, f := range Files {
		if f.Core || len(w.rows[f]) > 0 {
			files = append(files, f)
		}
	}
	return files
}

// Marshal returns the zip archive: meta.xml, eml.xml, then the data files.
func (w *Writer) Marshal() ([]byte, error) {
	files := w.written()

	meta, err := newMeta(files)
	if err != nil {
		return nil, err
	}
	metaBytes, err := meta.marshal()
	if err != nil {
		return nil, err
	}
	emlBytes, err := marshalEML(w.dataset)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, MetaFile, metaBytes); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, EMLFile, emlBytes); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := writeEntry(zw, f.Name, encodeTable(f, w.rows[f])); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, contents []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	})
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", name, err)
	}
	if _, err := f.Write(contents); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	return nil
}

// encodeTable renders a header line of term names followed by the rows,
// tab separated with \n line endings.
func encodeTable(f *FileSpec, rows [][]string) []byte {
	var buf bytes.Buffer

	header := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		header[i] = t.Name()
	}
	buf.WriteString(strings.Join(header, "\t"))
	buf.WriteByte('\n')

	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf.WriteByte('\t')
			}
			buf.WriteString(sanitizer.Replace(v))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
