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
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/penny-vault/pvsec/data"
)

const (
	indexDirName      = "edgar_master_index"
	referenceFileName = "company_tickers.json"
)

var (
	ErrInvalidTicker = errors.New("invalid ticker")
	ErrInvalidForm   = errors.New("invalid form type")
	ErrInvalidKind   = errors.New("invalid statement kind")

	tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)
	formPattern   = regexp.MustCompile(`^[0-9A-Z][0-9A-Z\-/]*$`)
	indexPattern  = regexp.MustCompile(`^master(\d{4})QTR([1-4])\.idx$`)
)

// Layout is the single place paths in the local cache directory are built.
//
//	<root>/company_tickers.json
//	<root>/edgar_master_index/master<YYYY>QTR<q>.idx
//	<root>/<TICKER>_reports/<form>s/xlsx/<TICKER>_<accession>.xlsx
//	<root>/<TICKER>_reports/<form>s/csv/<kind folder>/<TICKER>_<accession>.<ext>
type Layout struct {
	Root string
}

func New(root string) Layout {
	return Layout{Root: root}
}

// ReferenceFile is where the ticker reference table is cached
func (layout Layout) ReferenceFile() string {
	return filepath.Join(layout.Root, referenceFileName)
}

func (layout Layout) IndexDir() string {
	return filepath.Join(layout.Root, indexDirName)
}

// IndexFile is the cached master index for the given year and quarter
func (layout Layout) IndexFile(year, quarter int) string {
	return filepath.Join(layout.IndexDir(), fmt.Sprintf("master%dQTR%d.idx", year, quarter))
}

// IndexFiles lists the cached master index files in chronological order. A
// missing index directory yields an empty list.
func (layout Layout) IndexFiles() ([]string, error) {
	entries, err := os.ReadDir(layout.IndexDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !indexPattern.MatchString(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}

	// masterYYYYQTRn sorts lexically in period order
	sort.Strings(files)

	for idx, name := range files {
		files[idx] = filepath.Join(layout.IndexDir(), name)
	}

	return files, nil
}

// ReportDir is the per-ticker, per-form directory that holds artifacts and exports
func (layout Layout) ReportDir(ticker, form string) (string, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return "", err
	}

	form, err = NormalizeForm(form)
	if err != nil {
		return "", err
	}

	formDir := strings.ReplaceAll(form, "/", "-") + "s"
	return filepath.Join(layout.Root, fmt.Sprintf("%s_reports", ticker), formDir), nil
}

// ArtifactDir holds the downloaded spreadsheets for a ticker and form
func (layout Layout) ArtifactDir(ticker, form string) (string, error) {
	dir, err := layout.ReportDir(ticker, form)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "xlsx"), nil
}

// Artifact is the local path of the spreadsheet for one accession
func (layout Layout) Artifact(ticker, form, accession string) (string, error) {
	dir, err := layout.ArtifactDir(ticker, form)
	if err != nil {
		return "", err
	}

	ticker, _ = NormalizeTicker(ticker)
	compact := strings.ReplaceAll(accession, "-", "")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", ticker, compact)), nil
}

// ExportDir holds the exported tables for a statement kind
func (layout Layout) ExportDir(ticker, form string, kind data.StatementKind) (string, error) {
	folder := kind.Folder()
	if folder == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	dir, err := layout.ReportDir(ticker, form)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "csv", folder), nil
}

// Export is the path of one exported statement table. stem is normally the
// artifact's base name without extension so exports line up with artifacts.
func (layout Layout) Export(ticker, form string, kind data.StatementKind, stem, ext string) (string, error) {
	dir, err := layout.ExportDir(ticker, form, kind)
	if err != nil {
		return "", err
	}

	if stem == "" || strings.ContainsAny(stem, `/\`) {
		return "", fmt.Errorf("invalid export name %q", stem)
	}

	return filepath.Join(dir, fmt.Sprintf("%s.%s", stem, strings.TrimPrefix(ext, "."))), nil
}

// Stem returns the file name of path without directory or extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ensure creates dir and any missing parents
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// NormalizeTicker upper-cases the ticker and validates it is safe to use in a path
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return ticker, nil
}

// NormalizeForm upper-cases the form type and validates it
func NormalizeForm(form string) (string, error) {
	form = strings.ToUpper(strings.TrimSpace(form))
	if !formPattern.MatchString(form) {
		return "", fmt.Errorf("%w: %q", ErrInvalidForm, form)
	}
	return form, nil
}
