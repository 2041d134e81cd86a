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
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/penny-vault/pvsec/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Inventory counts what is cached for one ticker and form
type Inventory struct {
	Ticker      string
	Form        string
	IndexFiles  int
	Artifacts   int
	Bytes       int64
	Exports     map[data.StatementKind]int
	LastUpdated time.Time
}

// TakeInventory walks the report directory for ticker and form
func (layout Layout) TakeInventory(ticker, form string) (*Inventory, error) {
	inv := &Inventory{
		Exports: make(map[data.StatementKind]int, len(data.AllStatementKinds)),
	}

	var err error
	if inv.Ticker, err = NormalizeTicker(ticker); err != nil {
		return nil, err
	}

	if inv.Form, err = NormalizeForm(form); err != nil {
		return nil, err
	}

	indexFiles, err := layout.IndexFiles()
	if err != nil {
		return nil, err
	}
	inv.IndexFiles = len(indexFiles)

	artifactDir, err := layout.ArtifactDir(ticker, form)
	if err != nil {
		return nil, err
	}

	if err := inv.walk(artifactDir, ".xlsx", func(info os.FileInfo) {
		inv.Artifacts++
		inv.Bytes += info.Size()
	}); err != nil {
		return nil, err
	}

	for _, kind := range data.AllStatementKinds {
		exportDir, err := layout.ExportDir(ticker, form, kind)
		if err != nil {
			return nil, err
		}

		if err := inv.walk(exportDir, "", func(_ os.FileInfo) {
			inv.Exports[kind]++
		}); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

func (inv *Inventory) walk(dir, ext string, fn func(os.FileInfo)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || (ext != "" && filepath.Ext(entry.Name()) != ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		if info.ModTime().After(inv.LastUpdated) {
			inv.LastUpdated = info.ModTime()
		}

		fn(info)
	}

	return nil
}

// Summary returns a description of the inventory in markdown
func (inv *Inventory) Summary() string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("# %s %s reports\n\n", inv.Ticker, inv.Form))
	builder.WriteString("## Cache\n\n")
	builder.WriteString(p.Sprintf("  * Master index files: %d\n", inv.IndexFiles))
	builder.WriteString(p.Sprintf("  * Spreadsheets: %d (%s)\n\n", inv.Artifacts, humanize.Bytes(uint64(inv.Bytes))))

	builder.WriteString("## Exported statements\n\n")
	for _, kind := range data.AllStatementKinds {
		builder.WriteString(p.Sprintf("  * %s: %d\n", kind.Folder(), inv.Exports[kind]))
	}
	builder.WriteString("\n")

	if inv.LastUpdated.IsZero() {
		builder.WriteString("Last Updated: Never\n")
	} else {
		age := timeago.English.Format(inv.LastUpdated)
		builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n", age, inv.LastUpdated.Local().Format("01/02/2006")))
	}

	return builder.String()
}
