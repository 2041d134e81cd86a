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
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvsec/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cacheSettings struct {
	Dir string `toml:"dir"`
}

type secSettings struct {
	UserAgent string `toml:"user_agent,omitempty"`
	RateLimit int    `toml:"rate_limit"`
}

type dbSettings struct {
	URL string `toml:"url,omitempty"`
}

type healthchecksSettings struct {
	PingURL string `toml:"ping_url,omitempty"`
}

// settings is the subset of configuration written by `pvsec init`
type settings struct {
	Cache        cacheSettings        `toml:"cache"`
	SEC          secSettings          `toml:"sec"`
	DB           dbSettings           `toml:"db"`
	Healthchecks healthchecksSettings `toml:"healthchecks"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather settings, write the config file and setup the catalog schema",
	Run: func(cmd *cobra.Command, args []string) {
		conf := settings{
			Cache: cacheSettings{Dir: viper.GetString("cache.dir")},
			SEC: secSettings{
				UserAgent: viper.GetString("sec.user_agent"),
				RateLimit: viper.GetInt("sec.rate_limit"),
			},
			DB:           dbSettings{URL: viper.GetString("db.url")},
			Healthchecks: healthchecksSettings{PingURL: viper.GetString("healthchecks.ping_url")},
		}

		rateLimit := strconv.Itoa(conf.SEC.RateLimit)

		form := huh.NewForm(
			// Where files go and how we identify ourselves to the SEC
			huh.NewGroup(
				huh.NewInput().
					Title("Directory to store downloaded and exported files in:").
					Value(&conf.Cache.Dir).
					Validate(func(dir string) error {
						if strings.TrimSpace(dir) == "" {
							return errors.New("cache directory is required")
						}
						return nil
					}),

				huh.NewInput().
					Title("User-Agent for SEC requests (e.g. \"Jane Doe jane@example.com\"), leave blank for a random browser identity:").
					Value(&conf.SEC.UserAgent),

				huh.NewInput().
					Title("Maximum requests per second to the SEC (10 or fewer):").
					Value(&rateLimit).
					Validate(func(val string) error {
						n, err := strconv.Atoi(val)
						if err != nil {
							return err
						}
						if n < 1 || n > 10 {
							return errors.New("rate limit must be between 1 and 10")
						}
						return nil
					}),
			),

			// Optional catalog database and monitoring
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for the catalog PostgreSQL database, leave blank to disable (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&conf.DB.URL).
					Validate(func(dsn string) error {
						if dsn == "" {
							return nil
						}
						_, err := pgx.ParseConfig(dsn)
						return err
					}),

				huh.NewInput().
					Title("healthchecks.io ping URL, leave blank to disable:").
					Value(&conf.Healthchecks.PingURL).
					Validate(func(val string) error {
						if val == "" {
							return nil
						}
						_, err := url.ParseRequestURI(val)
						return err
					}),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		conf.SEC.RateLimit, _ = strconv.Atoi(rateLimit)

		if err := os.MkdirAll(conf.Cache.Dir, 0755); err != nil {
			log.Fatal().Err(err).Str("Dir", conf.Cache.Dir).Msg("could not create cache directory")
		}

		if conf.DB.URL != "" {
			log.Info().Msg("creating catalog tables")

			// run migration
			dbURL := strings.Replace(conf.DB.URL, "postgres://", "pgx5://", -1)
			err = db.Migrate(dbURL)
			if err != nil {
				log.Fatal().Err(err).Msg("error running database migration")
			}

			log.Info().Msg("catalog tables created")
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".pvsec.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving settings to config file")
		configData, err := toml.Marshal(conf)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0600)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("pvsec has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
