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
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/pvsec/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var infoForm string

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <ticker>",
	Short: "Display what is cached for a ticker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inventory, err := layout().TakeInventory(args[0], infoForm)
		if err != nil {
			log.Fatal().Err(err).Msg("could not inspect cache directory")
		}

		doc := inventory.Summary()
		if myLibrary := openLibrary(context.Background()); myLibrary != nil {
			defer myLibrary.Close()
			doc += recentRuns(myLibrary, inventory.Ticker)
		}

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(doc)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)
	},
}

// recentRuns renders the last few cataloged runs as a markdown table
func recentRuns(myLibrary *library.Library, ticker string) string {
	runs, err := myLibrary.Runs(context.Background(), ticker, 5)
	if err != nil {
		log.Error().Err(err).Msg("could not query catalog runs")
		return ""
	}

	if len(runs) == 0 {
		return ""
	}

	builder := strings.Builder{}
	builder.WriteString("\n## Recent runs\n\n")
	builder.WriteString("| Started | Form | Filings | Downloaded | Exported | Failures |\n")
	builder.WriteString("|---|---|---|---|---|---|\n")
	for _, run := range runs {
		builder.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d |\n",
			run.StartTime.Format("2006-01-02 15:04"), run.Form, run.NumRecords,
			run.NumDownloaded, run.NumExported, len(run.Failures)))
	}

	return builder.String()
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoForm, "form", "f", "10-K", "form type")
}
