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
	"fmt"

	"github.com/penny-vault/pvsec/data"
)

// DefaultCandidates are the sheet names Financial_Report.xlsx files have used
// for each statement, oldest vintage first. Names are truncated to the 31
// character sheet name limit by the SEC renderer.
func DefaultCandidates() map[data.StatementKind][]string {
	return map[data.StatementKind][]string{
		data.IncomeStatement:   {"Consolidated_Statements_of_Inc", "Consolidated Statements of Inco"},
		data.BalanceSheet:      {"Consolidated_Balance_Sheets", "Consolidated Balance Sheets"},
		data.CashFlowStatement: {"Consolidated_Statements_of_Cash", "Consolidated Statements of Cash"},
	}
}

// Lookup is the outcome of resolving a statement kind against a workbook's
// sheet names. Sheet is only meaningful when Found is true.
type Lookup struct {
	Kind  data.StatementKind
	Sheet string
	Found bool
}

// Extractor locates statement sheets by exact name, trying each candidate in
// order. It never falls back to fuzzy matching: picking the wrong sheet is
// worse than reporting that none matched.
type Extractor struct {
	candidates map[data.StatementKind][]string
}

// NewExtractor uses the default candidates followed by any extra names per kind
func NewExtractor(extra map[data.StatementKind][]string) *Extractor {
	candidates := DefaultCandidates()
	for kind, names := range extra {
		candidates[kind] = append(candidates[kind], names...)
	}
	return &Extractor{candidates: candidates}
}

// Candidates returns the ordered sheet names tried for kind
func (extractor *Extractor) Candidates(kind data.StatementKind) []string {
	names := extractor.candidates[kind]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Resolve picks the first candidate for kind present in sheetNames
func (extractor *Extractor) Resolve(sheetNames []string, kind data.StatementKind) Lookup {
	present := make(map[string]bool, len(sheetNames))
	for _, name := range sheetNames {
		present[name] = true
	}

	for _, candidate := range extractor.candidates[kind] {
		if present[candidate] {
			return Lookup{Kind: kind, Sheet: candidate, Found: true}
		}
	}

	return Lookup{Kind: kind}
}

// Extract loads the statement sheet for kind. The first row becomes the
// column labels and the remaining rows are kept in sheet order with every
// cell as formatted text.
func (extractor *Extractor) Extract(wb Workbook, kind data.StatementKind) (*data.StatementTable, error) {
	lookup := extractor.Resolve(wb.SheetNames(), kind)
	if !lookup.Found {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, kind)
	}

	rows, err := wb.Rows(lookup.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", lookup.Sheet, err)
	}

	table := &data.StatementTable{
		Kind:    kind,
		Sheet:   lookup.Sheet,
		Columns: []string{},
		Rows:    [][]string{},
	}

	if len(rows) == 0 {
		return table, nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	table.Columns = pad(rows[0], width)
	for _, row := range rows[1:] {
		table.Rows = append(table.Rows, pad(row, width))
	}

	return table, nil
}

// pad copies row and extends it with empty cells to width. Spreadsheet
// readers drop trailing empty cells, exports need rectangular tables.
func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
