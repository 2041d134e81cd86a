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
package reference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/alphadose/haxmap"
	"github.com/goccy/go-json"
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	CompanyTickersURL = "https://www.sec.gov/files/company_tickers_exchange.json"
)

var (
	ErrNotFound      = errors.New("ticker not found in reference table")
	ErrInvalidFormat = errors.New("reference table format not recognized")
)

// Getter retrieves the body at url, the fetch.Client satisfies it
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Table maps tickers to SEC filer identifiers. It is immutable once built.
type Table struct {
	records  []data.ReferenceRecord
	byTicker *haxmap.Map[string, data.ReferenceRecord]
}

// NewTable builds a table from records. When two records share a ticker the
// one with the lowest CIK wins.
func NewTable(records []data.ReferenceRecord) *Table {
	sorted := make([]data.ReferenceRecord, 0, len(records))
	for _, rec := range records {
		rec.Ticker = strings.ToUpper(strings.TrimSpace(rec.Ticker))
		if rec.Ticker == "" {
			continue
		}
		sorted = append(sorted, rec)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CIK == sorted[j].CIK {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].CIK < sorted[j].CIK
	})

	table := &Table{
		records:  sorted,
		byTicker: haxmap.New[string, data.ReferenceRecord](uintptr(len(sorted) + 1)),
	}

	for _, rec := range sorted {
		if _, ok := table.byTicker.Get(rec.Ticker); ok {
			continue
		}
		table.byTicker.Set(rec.Ticker, rec)
	}

	return table
}

// Resolve returns the reference record whose ticker matches exactly after
// upper-casing. Unknown tickers return ErrNotFound.
func (table *Table) Resolve(ticker string) (data.ReferenceRecord, error) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	if rec, ok := table.byTicker.Get(key); ok {
		return rec, nil
	}

	return data.ReferenceRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// CIK is a convenience wrapper around Resolve
func (table *Table) CIK(ticker string) (int64, error) {
	rec, err := table.Resolve(ticker)
	if err != nil {
		return 0, err
	}
	return rec.CIK, nil
}

func (table *Table) Len() int {
	return len(table.records)
}

// Records returns a copy of the records ordered by CIK
func (table *Table) Records() []data.ReferenceRecord {
	out := make([]data.ReferenceRecord, len(table.records))
	copy(out, table.records)
	return out
}

// Load reads a reference table saved by Save, or the company_tickers.json file
// published by the SEC (keyed by row number instead of CIK)
func Load(fn string) (*Table, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]data.ReferenceRecord)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	records := make([]data.ReferenceRecord, 0, len(entries))
	for _, rec := range entries {
		records = append(records, rec)
	}

	table := NewTable(records)
	log.Debug().Str("FileName", fn).Int("NumRecords", table.Len()).Msg("loaded reference table")

	return table, nil
}

// Save writes the table to fn keyed by CIK
func (table *Table) Save(fn string) error {
	entries := make(map[string]data.ReferenceRecord, len(table.records))
	for _, rec := range table.records {
		key := strconv.FormatInt(rec.CIK, 10)
		if _, ok := entries[key]; ok {
			// keep every ticker of a multi-class filer
			key = fmt.Sprintf("%s:%s", key, rec.Ticker)
		}
		entries[key] = rec
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fn, raw, 0o644)
}

// Download fetches the current ticker/exchange list from the SEC. The file is
// a positional table: {"fields": [...], "data": [[...], ...]}.
func Download(ctx context.Context, getter Getter, url string) (*Table, error) {
	if url == "" {
		url = CompanyTickersURL
	}

	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	return Parse(body)
}

// Parse decodes the SEC company_tickers_exchange.json document
func Parse(body []byte) (*Table, error) {
	fields := gjson.GetBytes(body, "fields")
	if !fields.IsArray() {
		return nil, fmt.Errorf("%w: missing fields array", ErrInvalidFormat)
	}

	columns := map[string]int{"cik": -1, "name": -1, "ticker": -1, "exchange": -1}
	for idx, field := range fields.Array() {
		if _, ok := columns[field.String()]; ok {
			columns[field.String()] = idx
		}
	}

	if columns["cik"] < 0 || columns["ticker"] < 0 {
		return nil, fmt.Errorf("%w: cik and ticker fields are required", ErrInvalidFormat)
	}

	column := func(row gjson.Result, name string) gjson.Result {
		if columns[name] < 0 {
			return gjson.Result{}
		}
		return row.Get(strconv.Itoa(columns[name]))
	}

	rows := gjson.GetBytes(body, "data").Array()
	records := make([]data.ReferenceRecord, 0, len(rows))
	for _, row := range rows {
		rec := data.ReferenceRecord{
			CIK:      column(row, "cik").Int(),
			Title:    column(row, "name").String(),
			Ticker:   column(row, "ticker").String(),
			Exchange: column(row, "exchange").String(),
		}

		if rec.CIK == 0 || rec.Ticker == "" {
			log.Warn().Str("Row", row.Raw).Msg("skipping reference row without cik or ticker")
			continue
		}

		records = append(records, rec)
	}

	return NewTable(records), nil
}
