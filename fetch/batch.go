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
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog"
)

// BatchResult summarizes a batch of downloads. Failed items are listed in
// Failures and never abort the batch.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Paths      []string
	Failures   []data.Failure
}

// IndexURL is the archive location of the master index for a quarter
func (client *Client) IndexURL(year, quarter int) string {
	base := client.indexBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s%d/QTR%d/master.idx", base, year, quarter)
}

// FetchIndex downloads one master index file unless dest already exists, in
// which case no request is made and the file is left untouched. The returned
// bool reports whether a download happened.
func (client *Client) FetchIndex(ctx context.Context, year, quarter int, dest string) (bool, error) {
	logger := zerolog.Ctx(ctx)

	if cache.Exists(dest) {
		logger.Debug().Str("FileName", dest).Msg("master index already cached")
		return false, nil
	}

	if err := client.Fetch(ctx, client.IndexURL(year, quarter), dest); err != nil {
		return false, err
	}

	return true, nil
}

// DownloadIndexes retrieves every published quarter between fromYear and
// toYear inclusive. Quarters that have not started yet are not requested.
func (client *Client) DownloadIndexes(ctx context.Context, layout cache.Layout, fromYear, toYear int) *BatchResult {
	logger := zerolog.Ctx(ctx)
	result := &BatchResult{
		Paths:    make([]string, 0),
		Failures: make([]data.Failure, 0),
	}

	now := time.Now()
	currentQuarter := (int(now.Month())-1)/3 + 1

	for year := fromYear; year <= toYear; year++ {
		for quarter := 1; quarter <= 4; quarter++ {
			if year > now.Year() || (year == now.Year() && quarter > currentQuarter) {
				continue
			}

			dest := layout.IndexFile(year, quarter)
			downloaded, err := client.FetchIndex(ctx, year, quarter, dest)
			if err != nil {
				logger.Warn().Err(err).Int("Year", year).Int("Quarter", quarter).Msg("could not download master index")
				result.Failures = append(result.Failures, data.Failure{
					Stage: data.StageDownload,
					Item:  client.IndexURL(year, quarter),
					Err:   err,
				})
				continue
			}

			if downloaded {
				result.Downloaded++
			} else {
				result.Skipped++
			}
			result.Paths = append(result.Paths, dest)
		}
	}

	return result
}

// Download retrieves each artifact whose local file does not exist yet
func (client *Client) Download(ctx context.Context, refs []data.ArtifactReference) *BatchResult {
	logger := zerolog.Ctx(ctx)
	result := &BatchResult{
		Paths:    make([]string, 0, len(refs)),
		Failures: make([]data.Failure, 0),
	}

	for _, ref := range refs {
		if cache.Exists(ref.LocalPath) {
			logger.Debug().Object("Artifact", ref).Msg("artifact already downloaded")
			result.Skipped++
			result.Paths = append(result.Paths, ref.LocalPath)
			continue
		}

		if err := client.Fetch(ctx, ref.URL, ref.LocalPath); err != nil {
			logger.Warn().Err(err).Object("Artifact", ref).Msg("could not download artifact")
			result.Failures = append(result.Failures, data.Failure{
				Stage: data.StageDownload,
				Item:  ref.URL,
				Err:   err,
			})
			continue
		}

		result.Downloaded++
		result.Paths = append(result.Paths, ref.LocalPath)
	}

	return result
}
