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

	"github.com/hako/durafmt"
	"github.com/penny-vault/pvsec/backblaze"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/healthcheck"
	"github.com/penny-vault/pvsec/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	fetchForm   string
	fetchKinds  []string
	fetchSince  string
	fetchForce  bool
	fetchUpload bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <ticker...>",
	Short: "Download and export financial statements for one or more tickers",
	Long: `The fetch sub-command runs the full pipeline for each ticker: it looks up the
company's filings in the cached master index files, downloads every
Financial_Report.xlsx that is not cached yet and exports the requested
statements. Tickers are processed one after another; a ticker that cannot be
resolved is reported and the remaining tickers still run.

Run 'pvsec index' first to populate the master index cache.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var since time.Time
		if fetchSince != "" {
			var err error
			since, err = time.Parse("2006-01-02", fetchSince)
			if err != nil {
				log.Fatal().Err(err).Str("Since", fetchSince).Msg("since must be formatted YYYY-MM-DD")
			}
		}

		client := newFetchClient()
		table, err := loadReferenceTable(ctx, client)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load ticker reference table")
		}

		myPipeline := &pipeline.Pipeline{
			Layout:     layout(),
			Resolver:   table,
			Downloader: client,
			Extractor:  newExtractor(),
			BaseURL:    viper.GetString("sec.archive_url"),
		}

		if myLibrary := openLibrary(ctx); myLibrary != nil {
			defer myLibrary.Close()
			myPipeline.Catalog = myLibrary
		}

		monitor := healthcheck.New(viper.GetString("healthchecks.ping_url"))
		if err := monitor.Start(); err != nil {
			log.Warn().Err(err).Msg("healthcheck start ping failed")
		}

		opts := pipeline.Options{
			Form:   fetchForm,
			Kinds:  parseKinds(fetchKinds),
			Since:  since,
			Format: viper.GetString("export.format"),
			Force:  fetchForce,
		}

		summaries := make([]*data.RunSummary, 0, len(args))
		for _, ticker := range args {
			startTime := time.Now()

			result, err := myPipeline.Run(ctx, ticker, opts)
			if err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("pipeline aborted")
				summary := data.NewRunSummary(ticker, fetchForm)
				summary.EndTime = time.Now()
				summary.Failures = append(summary.Failures, data.Failure{Stage: data.StageIndex, Item: ticker, Err: err})
				summaries = append(summaries, summary)
				continue
			}

			summaries = append(summaries, result.Summary)

			if fetchUpload && len(result.Exported) > 0 {
				bucket := viper.GetString("backblaze.bucket")
				uploaded, failures, err := backblaze.UploadExports(result.Exported, bucket, result.Summary.Ticker)
				if err != nil {
					log.Error().Err(err).Str("BucketName", bucket).Msg("upload to backblaze failed")
				}
				result.Summary.Failures = append(result.Summary.Failures, failures...)
				log.Info().Int("NumUploaded", uploaded).Str("BucketName", bucket).Msg("uploaded exports")
			}

			log.Info().Str("Ticker", result.Summary.Ticker).Str("RunTime", durafmt.Parse(time.Since(startTime)).String()).
				Int("NumExported", result.Summary.NumExported).Int("NumFailures", len(result.Summary.Failures)).
				Msg("successfully processed ticker")
		}

		if err := monitor.Finish(summaries...); err != nil {
			log.Warn().Err(err).Msg("healthcheck finish ping failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchForm, "form", "f", "10-K", "form type to retrieve (10-K, 10-Q)")
	fetchCmd.Flags().StringSliceVarP(&fetchKinds, "kind", "k", []string{"all"}, "statements to export (income, balance, cash, all)")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "only include filings on or after this date (YYYY-MM-DD)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-export statements that were already exported")
	fetchCmd.Flags().BoolVar(&fetchUpload, "upload", false, "upload exported files to the configured backblaze bucket")

	fetchCmd.Flags().String("format", "csv", "export format (csv, parquet)")
	if err := viper.BindPFlag("export.format", fetchCmd.Flags().Lookup("format")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for format failed")
	}
}
