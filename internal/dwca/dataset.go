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
	"errors"
	"time"
)

// DatasetConfig holds the dataset level constants written on every event and
// into eml.xml.
type DatasetConfig struct {
	Language        string `env:"DATASET_LANGUAGE, default=En"`
	License         string `env:"DATASET_LICENSE, default=http://creativecommons.org/licenses/by/4.0/legalcode"`
	RightsHolder    string `env:"DATASET_RIGHTS_HOLDER, default=His Majesty the King in right of Canada, as represented by the Minister of Fisheries and Oceans"`
	DatasetID       string `env:"DATASET_ID"`
	DatasetName     string `env:"DATASET_NAME"`
	InstitutionID   string `env:"DATASET_INSTITUTION_ID"`
	InstitutionCode string `env:"DATASET_INSTITUTION_CODE"`

	// Metadata only used in eml.xml.
	Title        string `env:"DATASET_TITLE, default=Ecosystem survey trawl catches"`
	Abstract     string `env:"DATASET_ABSTRACT"`
	Organization string `env:"DATASET_ORGANIZATION, default=Fisheries and Oceans Canada"`
	ContactName  string `env:"DATASET_CONTACT_NAME"`
	ContactEmail string `env:"DATASET_CONTACT_EMAIL"`
	PubDate      string `env:"DATASET_PUBDATE"`
}

// Validate checks the dataset constants that every archive needs.
func (c *DatasetConfig) Validate() error {
	if c.Language == "" {
		return errors.New("DATASET_LANGUAGE is required")
	}
	if c.License == "" {
		return errors.New("DATASET_LICENSE is required")
	}
	if c.Title == "" {
		return errors.New("DATASET_TITLE is required")
	}
	if c.PubDate != "" {
		if _, err := time.Parse("2006-01-02", c.PubDate); err != nil {
			return errors.New("DATASET_PUBDATE must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}
