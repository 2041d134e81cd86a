// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package archive

import (
	"strings"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://www.sec.gov/Archives/"
	ReportFileName = "Financial_Report.xlsx"
)

// Locator turns index records into archive URLs and local cache paths. It
// performs no I/O.
type Locator struct {
	BaseURL string
	Layout  cache.Layout
	Ticker  string
	Form    string
}

// Directory is the archive directory of a filing relative to the archive root,
// e.g. edgar/data/320193/000032019323000106
func Directory(rec data.IndexRecord) string {
	prefix := rec.ArchiveRelativePath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + rec.CompactAccession()
}

// URL builds the Financial_Report.xlsx url for rec under baseURL
func URL(baseURL string, rec data.IndexRecord) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + Directory(rec) + "/" + ReportFileName
}

// Reference derives the artifact reference for a single record
func (locator Locator) Reference(rec data.IndexRecord) (data.ArtifactReference, error) {
	localPath, err := locator.Layout.Artifact(locator.Ticker, locator.Form, rec.AccessionNumber)
	if err != nil {
		return data.ArtifactReference{}, err
	}

	return data.ArtifactReference{
		URL:        URL(locator.BaseURL, rec),
		LocalPath:  localPath,
		Accession:  rec.AccessionNumber,
		FilingDate: rec.FilingDate,
	}, nil
}

// Locate maps each record to its artifact reference, preserving order.
// Records repeated in the input (the same accession listed in two index
// files) are only located once.
func (locator Locator) Locate(records []data.IndexRecord) ([]data.ArtifactReference, error) {
	refs := make([]data.ArtifactReference, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		ref, err := locator.Reference(rec)
		if err != nil {
			return nil, err
		}

		if seen[ref.URL] {
			log.Debug().Object("IndexRecord", rec).Msg("duplicate index record")
			continue
		}
		seen[ref.URL] = true

		refs = append(refs, ref)
	}

	return refs, nil
}
