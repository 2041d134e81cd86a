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
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var (
	ErrSheetNotFound = errors.New("no recognized statement sheet in workbook")
	ErrUnreadable    = errors.New("workbook could not be opened")
)

// Workbook is the read-only view of a spreadsheet the extractor needs
type Workbook interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
	Close() error
}

type excelWorkbook struct {
	file *excelize.File
}

// Open reads the workbook at path. Anything excelize cannot parse (truncated
// downloads, HTML error pages saved as .xlsx) is reported as ErrUnreadable.
func Open(path string) (Workbook, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return &excelWorkbook{file: file}, nil
}

func (wb *excelWorkbook) SheetNames() []string {
	return wb.file.GetSheetList()
}

func (wb *excelWorkbook) Rows(sheet string) ([][]string, error) {
	return wb.file.GetRows(sheet)
}

func (wb *excelWorkbook) Close() error {
	return wb.file.Close()
}
