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
package statement

import (
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
)

// BatchResult holds the tables extracted from a set of workbooks, keyed by
// kind and in workbook order
type BatchResult struct {
	Tables   map[data.StatementKind][]*data.StatementTable
	Failures []data.Failure
}

func (result *BatchResult) Count() int {
	count := 0
	for _, tables := range result.Tables {
		count += len(tables)
	}
	return count
}

// ExtractFile opens one workbook and extracts each requested kind. A missing
// sheet fails only that kind; an unreadable workbook fails all of them and is
// returned as the error.
func (extractor *Extractor) ExtractFile(path string, kinds []data.StatementKind) (map[data.StatementKind]*data.StatementTable, []data.Failure, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()

	tables := make(map[data.StatementKind]*data.StatementTable, len(kinds))
	failures := make([]data.Failure, 0)

	for _, kind := range kinds {
		table, err := extractor.Extract(wb, kind)
		if err != nil {
			log.Warn().Err(err).Str("FileName", path).Str("Kind", string(kind)).Strs("Sheets", wb.SheetNames()).Msg("statement sheet missing")
			failures = append(failures, data.Failure{
				Stage: data.StageExtract,
				Item:  path,
				Err:   err,
			})
			continue
		}

		table.Source = path
		tables[kind] = table
	}

	return tables, failures, nil
}

// ExtractAll runs ExtractFile over paths. Problems with one workbook never
// stop the remaining workbooks from being processed.
func (extractor *Extractor) ExtractAll(paths []string, kinds []data.StatementKind) *BatchResult {
	result := &BatchResult{
		Tables:   make(map[data.StatementKind][]*data.StatementTable, len(kinds)),
		Failures: make([]data.Failure, 0),
	}

	for _, path := range paths {
		tables, failures, err := extractor.ExtractFile(path, kinds)
		if err != nil {
			log.Warn().Err(err).Str("FileName", path).Msg("skipping unreadable workbook")
			result.Failures = append(result.Failures, data.Failure{
				Stage: data.StageExtract,
				Item:  path,
				Err:   err,
			})
			continue
		}

		result.Failures = append(result.Failures, failures...)
		for _, kind := range kinds {
			if table, ok := tables[kind]; ok {
				result.Tables[kind] = append(result.Tables[kind], table)
			}
		}
	}

	log.Info().Int("NumWorkbooks", len(paths)).Int("NumTables", result.Count()).Int("NumFailures", len(result.Failures)).Msg("extracted statements")

	return result
}
