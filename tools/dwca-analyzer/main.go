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

// This tool checks a Darwin Core Archive and prints a summary of its contents.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/andesobis/obis-export/internal/dwca"
	"github.com/andesobis/obis-export/internal/obis/model"

	"github.com/hashicorp/go-multierror"
)

var (
	filePath  = flag.String("file", "", "Path to the archive zip file.")
	printJSON = flag.Bool("json", true, "Print a JSON summary of the archive")
	quiet     = flag.Bool("q", false, "run in quiet mode")
)

type fileSummary struct {
	RowType string `json:"rowType"`
	Core    bool   `json:"core,omitempty"`
	Rows    int    `json:"rows"`
}

type summary struct {
	Files  map[string]*fileSummary `json:"files"`
	Errors []string                `json:"errors,omitempty"`
}

func main() {
	flag.Parse()
	if *filePath == "" {
		log.Fatal("--file is required.")
	}

	blob, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("can't read archive: %v", err)
	}

	archive, err := dwca.Unmarshal(blob)
	if err != nil {
		log.Fatalf("error reading archive: %v", err)
	}

	s, err := analyze(archive)
	if err != nil && !*quiet {
		log.Printf("archive contains errors: %v", err)
	}

	if *printJSON {
		prettyJSON, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			log.Fatalf("error pretty printing summary: %v", err)
		}
		fmt.Println(string(prettyJSON))
	}

	if err != nil {
		// return a non zero code if there are issues with the archive.
		os.Exit(1)
	}
}

// analyze summarizes the archive and returns every structural and vocabulary
// problem found.
func analyze(a *dwca.Archive) (*summary, error) {
	s := &summary{Files: make(map[string]*fileSummary)}

	var errs *multierror.Error
	if err := a.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}

	for _, fs := range a.Meta.Files() {
		fsum := &fileSummary{RowType: fs.RowType, Core: fs.ID != nil}
		s.Files[fs.Location] = fsum

		t, ok := a.Tables[fs.Location]
		if !ok {
			continue
		}
		fsum.Rows = len(t.Rows)

		if err := checkVocabulary(fs, t, dwca.TermBasisOfRecord, model.ValidBasisOfRecord); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := checkVocabulary(fs, t, dwca.TermOccurrenceStatus, model.ValidOccurrenceStatus); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		// Append flattens nested multierrors.
		for _, e := range errs.WrappedErrors() {
			s.Errors = append(s.Errors, e.Error())
		}
		return s, err
	}
	return s, nil
}

func checkVocabulary(fs *dwca.MetaFileSet, t *dwca.Table, term dwca.Term, valid func(string) bool) error {
	values, ok := t.Column(fs, term)
	if !ok {
		return nil
	}

	var errs *multierror.Error
	for i, v := range values {
		if !valid(v) {
			errs = multierror.Append(errs, fmt.Errorf("%s row %d: %s %q is not in the controlled vocabulary", t.Name, i+1, term.Name(), v))
		}
	}
	return errs.ErrorOrNil()
}
