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
package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StatementKind identifies one of the three financial statements extracted
// from a filing's Financial_Report.xlsx
type StatementKind string

const (
	IncomeStatement   StatementKind = "income"
	BalanceSheet      StatementKind = "balance"
	CashFlowStatement StatementKind = "cash_flow"
)

// AllStatementKinds lists every statement kind in export order
var AllStatementKinds = []StatementKind{IncomeStatement, BalanceSheet, CashFlowStatement}

// ParseStatementKind accepts the canonical names plus the short forms used on
// the command line ("cash", "cash flow", "inc")
func ParseStatementKind(name string) (StatementKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "income", "inc", "income_statement":
		return IncomeStatement, nil
	case "balance", "balance_sheet":
		return BalanceSheet, nil
	case "cash", "cash flow", "cash_flow", "cashflow":
		return CashFlowStatement, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatementKind, name)
	}
}

// Folder is the export directory name for the statement kind
func (kind StatementKind) Folder() string {
	switch kind {
	case IncomeStatement:
		return "income_statements"
	case BalanceSheet:
		return "balance_sheets"
	case CashFlowStatement:
		return "cash_flow_statements"
	default:
		return ""
	}
}

// ReferenceRecord maps a ticker to the SEC assigned filer identifier (CIK)
type ReferenceRecord struct {
	Ticker   string `json:"ticker"`
	CIK      int64  `json:"cik_str"`
	Title    string `json:"title"`
	Exchange string `json:"exchange,omitempty"`
}

// PaddedCIK returns the CIK zero padded to 10 digits as used in accession numbers
func (rec ReferenceRecord) PaddedCIK() string {
	return fmt.Sprintf("%010d", rec.CIK)
}

func (rec ReferenceRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", rec.Ticker)
	e.Int64("CIK", rec.CIK)
	e.Str("Exchange", rec.Exchange)
}

// IndexRecord is one filing line matched in a quarterly master index file
type IndexRecord struct {
	FormType            string    `db:"form_type"`
	FilingDate          time.Time `db:"filing_date"`
	ArchiveRelativePath string    `db:"archive_path"`
	AccessionNumber     string    `db:"accession_number"`
	CIK                 int64     `db:"cik"`
	SourceFile          string    `db:"source_file"`
}

// CompactAccession returns the accession number without dashes, the form
// used for archive directory names
func (rec IndexRecord) CompactAccession() string {
	return strings.ReplaceAll(rec.AccessionNumber, "-", "")
}

func (rec IndexRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("FormType", rec.FormType)
	e.Str("FilingDate", rec.FilingDate.Format("2006-01-02"))
	e.Str("ArchivePath", rec.ArchiveRelativePath)
	e.Str("Accession", rec.AccessionNumber)
	e.Int64("CIK", rec.CIK)
}

// ArtifactReference points at a Financial_Report.xlsx in the archive and the
// location it is cached at locally
type ArtifactReference struct {
	URL        string
	LocalPath  string
	Accession  string
	FilingDate time.Time
}

func (ref ArtifactReference) MarshalZerologObject(e *zerolog.Event) {
	e.Str("URL", ref.URL)
	e.Str("LocalPath", ref.LocalPath)
	e.Str("Accession", ref.Accession)
}

// StatementTable is a statement sheet loaded verbatim from a workbook. Columns
// holds the sheet's header row and Rows the remaining rows in sheet order.
type StatementTable struct {
	Kind    StatementKind
	Sheet   string
	Source  string
	Columns []string
	Rows    [][]string
}
