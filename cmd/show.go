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
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/export"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	showForm string
	showKind string
	showLast int
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <ticker>",
	Short: "Print exported statements for a ticker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := data.ParseStatementKind(showKind)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid statement kind")
		}

		tables, err := export.LoadAll(layout(), args[0], showForm, kind)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load exported statements")
		}

		if len(tables) == 0 {
			fmt.Printf("no exported %s for %s, run `pvsec fetch %s` first\n", kind.Folder(), args[0], args[0])
			return
		}

		if showLast > 0 && len(tables) > showLast {
			tables = tables[len(tables)-showLast:]
		}

		for _, statement := range tables {
			out := table.New().
				Border(lipgloss.RoundedBorder()).
				Headers(statement.Columns...).
				Rows(statement.Rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == 0 {
						return headerStyle
					}
					return cellStyle
				})

			fmt.Println(statement.Source)
			fmt.Println(out.Render())
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showForm, "form", "f", "10-K", "form type")
	showCmd.Flags().StringVarP(&showKind, "kind", "k", "income", "statement kind (income, balance, cash)")
	showCmd.Flags().IntVarP(&showLast, "last", "n", 1, "number of most recent statements to print (0 for all)")
}
