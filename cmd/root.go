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
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pvsec",
	Short: "pvsec downloads and normalizes financial statements filed with the SEC",
	Long: `pvsec is a command line utility for building a local library of the
financial statements companies file with the SEC. For a ticker it:

	* resolves the SEC filer identifier (CIK)
	* finds the company's filings in the quarterly EDGAR master index
	* downloads each filing's Financial_Report.xlsx
	* extracts the income statement, balance sheet and cash flow statement
	* exports every statement as CSV (or parquet)

Downloaded files are cached so re-running a ticker only fetches what is new.
All requests to the SEC share a single rate limit (10 per second by default).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			log.Warn().Str("LogLevel", logLevel).Msg("unknown log level, using info")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvsec.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.PersistentFlags().String("cache-dir", "data", "directory downloaded and exported files are stored in")
	if err := viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for cache-dir failed")
	}

	rootCmd.PersistentFlags().String("user-agent", "", "User-Agent sent to the SEC (default is a random browser identity)")
	if err := viper.BindPFlag("sec.user_agent", rootCmd.PersistentFlags().Lookup("user-agent")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for user-agent failed")
	}

	rootCmd.PersistentFlags().String("db-url", "", "optional PostgreSQL catalog connection string")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("db-url")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for db-url failed")
	}

	viper.SetDefault("sec.archive_url", "https://www.sec.gov/Archives/")
	viper.SetDefault("sec.index_url", "https://www.sec.gov/Archives/edgar/full-index/")
	viper.SetDefault("sec.tickers_url", "https://www.sec.gov/files/company_tickers_exchange.json")
	viper.SetDefault("sec.rate_limit", 10)
	viper.SetDefault("sec.max_retries", 5)
	viper.SetDefault("export.format", "csv")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pvsec" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".pvsec")
	}

	viper.SetEnvPrefix("pvsec")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}
