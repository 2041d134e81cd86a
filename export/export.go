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
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
)

// BatchResult lists the files written by an export run
type BatchResult struct {
	Paths    []string
	Skipped  int
	Failures []data.Failure
}

// Exporter writes statement tables into the cache layout, one file per table
type Exporter struct {
	Layout cache.Layout
	Ticker string
	Form   string
	Format string

	// Force rewrites files that already exist
	Force bool
}

func (exporter *Exporter) format() string {
	if exporter.Format == "" {
		return FormatCSV
	}
	return strings.ToLower(exporter.Format)
}

// Path returns where the table extracted from source is exported to
func (exporter *Exporter) Path(kind data.StatementKind, source string) (string, error) {
	return exporter.Layout.Export(exporter.Ticker, exporter.Form, kind, cache.Stem(source), exporter.format())
}

// Done reports whether every kind has already been exported for source
func (exporter *Exporter) Done(source string, kinds []data.StatementKind) bool {
	if exporter.Force {
		return false
	}

	for _, kind := range kinds {
		path, err := exporter.Path(kind, source)
		if err != nil || !cache.Exists(path) {
			return false
		}
	}

	return true
}

// Write exports a single table
func (exporter *Exporter) Write(table *data.StatementTable) (string, error) {
	path, err := exporter.Path(table.Kind, table.Source)
	if err != nil {
		return "", err
	}

	if err := cache.Ensure(filepath.Dir(path)); err != nil {
		return "", err
	}

	switch exporter.format() {
	case FormatCSV:
		err = WriteCSV(table, path)
	case FormatParquet:
		err = WriteParquet(table, path)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownFormat, exporter.Format)
	}

	return path, err
}

// Export writes every table. Tables whose file exists are skipped unless Force is set.
func (exporter *Exporter) Export(tables map[data.StatementKind][]*data.StatementTable) *BatchResult {
	result := &BatchResult{
		Paths:    make([]string, 0),
		Failures: make([]data.Failure, 0),
	}

	for _, kind := range data.AllStatementKinds {
		for _, table := range tables[kind] {
			if !exporter.Force {
				if path, err := exporter.Path(kind, table.Source); err == nil && cache.Exists(path) {
					result.Skipped++
					continue
				}
			}

			path, err := exporter.Write(table)
			if err != nil {
				log.Warn().Err(err).Str("Source", table.Source).Str("Kind", string(kind)).Msg("could not export statement")
				result.Failures = append(result.Failures, data.Failure{
					Stage: data.StageExport,
					Item:  table.Source,
					Err:   err,
				})
				continue
			}

			result.Paths = append(result.Paths, path)
		}
	}

	return result
}

// WriteCSV writes the header row followed by every row without transformation
func WriteCSV(table *data.StatementTable, path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	writer := gocsv.DefaultCSVWriter(fh)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}

	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	return fh.Close()
}

// ReadCSV loads a previously exported table. The first record is the header.
func ReadCSV(path string, kind data.StatementKind) (*data.StatementTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := gocsv.DefaultCSVReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	table := &data.StatementTable{
		Kind:    kind,
		Source:  path,
		Columns: []string{},
		Rows:    [][]string{},
	}

	if len(records) > 0 {
		table.Columns = records[0]
		table.Rows = records[1:]
	}

	return table, nil
}

// LoadAll reads every exported CSV for a ticker, form and kind in file name order
func LoadAll(layout cache.Layout, ticker, form string, kind data.StatementKind) ([]*data.StatementTable, error) {
	dir, err := layout.ExportDir(ticker, form, kind)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*data.StatementTable{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".csv" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tables := make([]*data.StatementTable, 0, len(names))
	for _, name := range names {
		table, err := ReadCSV(filepath.Join(dir, name), kind)
		if err != nil {
			log.Warn().Err(err).Str("FileName", name).Msg("skipping unreadable export")
			continue
		}
		tables = append(tables, table)
	}

	return tables, nil
}
