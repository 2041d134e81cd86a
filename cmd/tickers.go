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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// tickersCmd represents the tickers command
var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Refresh the ticker to CIK reference table from the SEC",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		table, err := refreshReferenceTable(ctx, newFetchClient())
		if err != nil {
			log.Fatal().Err(err).Msg("could not refresh reference table")
		}

		fmt.Printf("%d tickers saved to %s\n", table.Len(), layout().ReferenceFile())
	},
}

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <ticker...>",
	Short: "Print the CIK and exchange for tickers",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		table, err := loadReferenceTable(ctx, newFetchClient())
		if err != nil {
			log.Fatal().Err(err).Msg("could not load reference table")
		}

		for _, ticker := range args {
			rec, err := table.Resolve(ticker)
			if err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("could not resolve ticker")
				continue
			}

			fmt.Printf("%s\t%s\t%s\t%s\n", rec.Ticker, rec.PaddedCIK(), rec.Exchange, rec.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(tickersCmd)
	rootCmd.AddCommand(resolveCmd)
}
