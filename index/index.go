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
package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
)

var (
	ErrDecode = errors.New("index file is not valid UTF-8 text")
)

// Result holds the records matched across a set of index files plus the files
// that could not be read. A failed file contributes no records.
type Result struct {
	Records  []data.IndexRecord
	Failures []data.Failure
}

// Matcher finds the filings of one form type for one filer inside a master
// index file. Lines look like:
//
//	320193|Apple Inc.|10-K|2023-11-03|edgar/data/320193/0000320193-23-000106.txt
//
// The pattern spans the form, date and filename fields of the entry so the
// company name column (which may contain anything) is never inspected.
type Matcher struct {
	CIK  int64
	Form string

	re *regexp.Regexp
}

// NewMatcher compiles the record pattern for cik and form. Leading zeros on
// the CIK in the archive path are tolerated.
func NewMatcher(cik int64, form string) *Matcher {
	pattern := fmt.Sprintf(`(?:^|[|\s])(%s)[|\s]+(\d{4}-\d{2}-\d{2})[|\s]+(edgar/data/0*%d/)(\d{10}-\d{2}-\d{6})`,
		regexp.QuoteMeta(form), cik)

	return &Matcher{
		CIK:  cik,
		Form: form,
		re:   regexp.MustCompile(pattern),
	}
}

// Match returns every record found in content in the order they appear
func (matcher *Matcher) Match(content []byte, source string) []data.IndexRecord {
	records := make([]data.IndexRecord, 0)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		for _, match := range matcher.re.FindAllSubmatch(line, -1) {
			filingDate, err := time.Parse("2006-01-02", string(match[2]))
			if err != nil {
				log.Warn().Err(err).Str("FileName", source).Int("Line", lineNum).Msg("skipping index record with invalid date")
				continue
			}

			records = append(records, data.IndexRecord{
				FormType:            string(match[1]),
				FilingDate:          filingDate,
				ArchiveRelativePath: string(match[3]),
				AccessionNumber:     string(match[4]),
				CIK:                 matcher.CIK,
				SourceFile:          source,
			})
		}
	}

	return records
}

// ScanFile matches the records in a single index file
func (matcher *Matcher) ScanFile(fn string) ([]data.IndexRecord, error) {
	content, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrDecode, fn)
	}

	return matcher.Match(content, fn), nil
}

// Scan matches cik and form across files in the order given. Files that
// cannot be read or decoded are reported in Result.Failures and skipped.
func Scan(cik int64, form string, files []string) *Result {
	matcher := NewMatcher(cik, form)
	result := &Result{
		Records:  make([]data.IndexRecord, 0),
		Failures: make([]data.Failure, 0),
	}

	for _, fn := range files {
		records, err := matcher.ScanFile(fn)
		if err != nil {
			log.Warn().Err(err).Str("FileName", fn).Msg("skipping index file")
			result.Failures = append(result.Failures, data.Failure{
				Stage: data.StageIndex,
				Item:  fn,
				Err:   err,
			})
			continue
		}

		if len(records) > 0 {
			log.Debug().Str("FileName", fn).Int("NumRecords", len(records)).Str("CIK", strconv.FormatInt(cik, 10)).Msg("matched index records")
		}

		result.Records = append(result.Records, records...)
	}

	return result
}

// Since drops records filed before the given date. A zero date keeps everything.
func Since(records []data.IndexRecord, since time.Time) []data.IndexRecord {
	if since.IsZero() {
		return records
	}

	kept := make([]data.IndexRecord, 0, len(records))
	for _, rec := range records {
		if !rec.FilingDate.Before(since) {
			kept = append(kept, rec)
		}
	}

	return kept
}
