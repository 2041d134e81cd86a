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
package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/penny-vault/pvsec/archive"
	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/index"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	filingsForm    string
	filingsCatalog bool
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// filingsCmd represents the filings command
var filingsCmd = &cobra.Command{
	Use:   "filings <ticker>",
	Short: "List the filings found for a ticker without downloading them",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		ticker, err := cache.NormalizeTicker(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("invalid ticker")
		}

		form, err := cache.NormalizeForm(filingsForm)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid form")
		}

		var records []data.IndexRecord
		if filingsCatalog {
			myLibrary := openLibrary(ctx)
			if myLibrary == nil {
				log.Fatal().Msg("--catalog requires db.url to be configured")
			}
			defer myLibrary.Close()

			cataloged, err := myLibrary.Filings(ctx, ticker, form)
			if err != nil {
				log.Fatal().Err(err).Msg("could not query catalog")
			}
			for _, rec := range cataloged {
				records = append(records, *rec)
			}
		} else {
			refTable, err := loadReferenceTable(ctx, newFetchClient())
			if err != nil {
				log.Fatal().Err(err).Msg("could not load reference table")
			}

			cik, err := refTable.CIK(ticker)
			if err != nil {
				log.Fatal().Err(err).Msg("could not resolve ticker")
			}

			files, err := layout().IndexFiles()
			if err != nil {
				log.Fatal().Err(err).Msg("could not list master index files")
			}

			result := index.Scan(cik, form, files)
			records = result.Records
		}

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.FilingDate.Format("2006-01-02"),
				rec.FormType,
				rec.AccessionNumber,
				archive.URL(viper.GetString("sec.archive_url"), rec),
			})
		}

		out := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Filed", "Form", "Accession", "Spreadsheet").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == 0 {
					return headerStyle
				}
				return cellStyle
			})

		fmt.Println(out.Render())
		fmt.Printf("%d filings\n", len(records))
	},
}

func init() {
	rootCmd.AddCommand(filingsCmd)

	filingsCmd.Flags().StringVarP(&filingsForm, "form", "f", "10-K", "form type to list")
	filingsCmd.Flags().BoolVar(&filingsCatalog, "catalog", false, "read filings from the catalog database instead of the master index")
}
