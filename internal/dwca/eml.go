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
	"strings"

	"github.com/google/uuid"
)

// The EML elements are written with literal prefixes, since encoding/xml
// would otherwise invent its own.
type eml struct {
	XMLName        xml.Name   `xml:"eml:eml"`
	XMLNSEML       string     `xml:"xmlns:eml,attr"`
	XMLNSDC        string     `xml:"xmlns:dc,attr"`
	XMLNSXSI       string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:schemaLocation,attr"`
	PackageID      string     `xml:"packageId,attr"`
	System         string     `xml:"system,attr"`
	Scope          string     `xml:"scope,attr"`
	Lang           string     `xml:"xml:lang,attr"`
	Dataset        emlDataset `xml:"dataset"`
}

type emlDataset struct {
	AlternateIdentifier string       `xml:"alternateIdentifier,omitempty"`
	Title               string       `xml:"title"`
	Creator             emlParty     `xml:"creator"`
	MetadataProvider    emlParty     `xml:"metadataProvider"`
	PubDate             string       `xml:"pubDate,omitempty"`
	Language            string       `xml:"language"`
	Abstract            emlParagraph `xml:"abstract"`
	IntellectualRights  emlParagraph `xml:"intellectualRights"`
	Contact             emlParty     `xml:"contact"`
}

type emlParty struct {
	IndividualName   *emlName `xml:"individualName,omitempty"`
	OrganizationName string   `xml:"organizationName,omitempty"`
	Email            string   `xml:"electronicMailAddress,omitempty"`
}

type emlName struct {
	SurName string `xml:"surName"`
}

type emlParagraph struct {
	Para string `xml:"para"`
}

// packageID derives a stable identifier for the dataset, so that unchanged
// metadata yields an identical eml.xml.
func packageID(ds *DatasetConfig) string {
	key := ds.DatasetID
	if key == "" {
		key = ds.Organization + "/" + ds.Title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func marshalEML(ds *DatasetConfig) ([]byte, error) {
	party := emlParty{
		OrganizationName: ds.Organization,
		Email:            ds.ContactEmail,
	}
	if ds.ContactName != "" {
		party.IndividualName = &emlName{SurName: ds.ContactName}
	}

	rights := ds.License
	if ds.RightsHolder != "" {
		rights = ds.RightsHolder + ". " + ds.License
	}

	doc := &eml{
		XMLNSEML:       "eml://ecoinformatics.org/eml-2.1.1",
		XMLNSDC:        "http://purl.org/dc/terms/",
		XMLNSXSI:       "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: "eml://ecoinformatics.org/eml-2.1.1 http://rs.gbif.org/schema/eml-gbif-profile/1.1/eml.xsd",
		PackageID:      packageID(ds),
		System:         "http://gbif.org",
		Scope:          "system",
		Lang:           strings.ToLower(ds.Language),
		Dataset: emlDataset{
			AlternateIdentifier: ds.DatasetID,
			Title:               ds.Title,
			Creator:             party,
			MetadataProvider:    party,
			PubDate:             ds.PubDate,
			Language:            strings.ToLower(ds.Language),
			Abstract:            emlParagraph{Para: ds.Abstract},
			IntellectualRights:  emlParagraph{Para: rights},
			Contact:             party,
		},
	}

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", EMLFile, err)
	}
	return append([]byte(xml.Header), append(b, '\n')...), nil
}
