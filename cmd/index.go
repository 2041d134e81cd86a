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
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	indexFromYear int
	indexToYear   int
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Download the quarterly EDGAR master index files",
	Long: `Master index files list every filing submitted to EDGAR in a quarter. They
are downloaded once into the cache directory; quarters that are already cached
are not requested again.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if indexFromYear > indexToYear {
			log.Fatal().Int("From", indexFromYear).Int("To", indexToYear).Msg("from year must not be after to year")
		}

		client := newFetchClient()
		result := client.DownloadIndexes(ctx, layout(), indexFromYear, indexToYear)

		for _, failure := range result.Failures {
			log.Warn().Err(failure.Err).Str("URL", failure.Item).Msg("master index not retrieved")
		}

		log.Info().Int("Downloaded", result.Downloaded).Int("Skipped", result.Skipped).
			Int("Failed", len(result.Failures)).Msg("master index update complete")
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	currentYear := time.Now().Year()
	indexCmd.Flags().IntVar(&indexFromYear, "from", currentYear, "first year to download")
	indexCmd.Flags().IntVar(&indexToYear, "to", currentYear, "last year to download")
}
