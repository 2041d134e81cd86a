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
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/penny-vault/pvsec/data"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ColumnNames turns sheet header labels into unique parquet column names
func ColumnNames(labels []string) []string {
	names := make([]string, len(labels))
	used := make(map[string]bool, len(labels))

	for idx, label := range labels {
		base := strings.ReplaceAll(slug.Make(label), "-", "_")
		if base == "" {
			base = fmt.Sprintf("column_%d", idx)
		}

		name := base
		for suffix := 1; used[name]; suffix++ {
			name = fmt.Sprintf("%s_%d", base, suffix)
		}
		used[name] = true

		names[idx] = name
	}

	return names
}

// WriteParquet stores the table with every column as UTF8 text. The original
// header labels are not representable as parquet names so they are slugged.
func WriteParquet(table *data.StatementTable, path string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fw.Close()

	names := ColumnNames(table.Columns)
	schema := make([]string, len(names))
	for idx, name := range names {
		schema[idx] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", name)
	}

	pw, err := writer.NewCSVWriter(schema, fw, 1)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range table.Rows {
		rec := make([]interface{}, len(names))
		for idx := range names {
			if idx < len(row) {
				rec[idx] = row[idx]
			} else {
				rec[idx] = ""
			}
		}

		if err := pw.Write(rec); err != nil {
			return err
		}
	}

	return pw.WriteStop()
}
