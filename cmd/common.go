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
	"errors"
	"os"
	"sync"
	"time"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/fetch"
	"github.com/penny-vault/pvsec/library"
	"github.com/penny-vault/pvsec/reference"
	"github.com/penny-vault/pvsec/statement"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

var (
	sharedLimiter     *rate.Limiter
	sharedLimiterOnce sync.Once
)

// limiter is the one outbound call budget for the whole process
func limiter() *rate.Limiter {
	sharedLimiterOnce.Do(func() {
		sharedLimiter = fetch.NewLimiter(viper.GetInt("sec.rate_limit"), time.Second)
	})
	return sharedLimiter
}

func layout() cache.Layout {
	return cache.New(viper.GetString("cache.dir"))
}

func newFetchClient() *fetch.Client {
	return fetch.New(fetch.Config{
		UserAgent:    viper.GetString("sec.user_agent"),
		IndexBaseURL: viper.GetString("sec.index_url"),
		MaxRetries:   viper.GetInt("sec.max_retries"),
		Limiter:      limiter(),
	})
}

// loadReferenceTable reads the cached ticker table, downloading it from the
// SEC the first time
func loadReferenceTable(ctx context.Context, client *fetch.Client) (*reference.Table, error) {
	myLayout := layout()
	fn := myLayout.ReferenceFile()

	table, err := reference.Load(fn)
	if err == nil {
		return table, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	log.Info().Str("FileName", fn).Msg("reference table not cached, downloading from the SEC")
	return refreshReferenceTable(ctx, client)
}

func refreshReferenceTable(ctx context.Context, client *fetch.Client) (*reference.Table, error) {
	myLayout := layout()

	table, err := reference.Download(ctx, client, viper.GetString("sec.tickers_url"))
	if err != nil {
		return nil, err
	}

	if err := cache.Ensure(myLayout.Root); err != nil {
		return nil, err
	}

	if err := table.Save(myLayout.ReferenceFile()); err != nil {
		return nil, err
	}

	log.Info().Int("NumRecords", table.Len()).Str("FileName", myLayout.ReferenceFile()).Msg("saved reference table")
	return table, nil
}

// newExtractor adds the sheet names listed under statements.<kind>.sheets
func newExtractor() *statement.Extractor {
	extra := make(map[data.StatementKind][]string)
	for _, kind := range data.AllStatementKinds {
		if names := viper.GetStringSlice("statements." + string(kind) + ".sheets"); len(names) > 0 {
			extra[kind] = names
		}
	}
	return statement.NewExtractor(extra)
}

// openLibrary connects to the catalog when db.url is configured, otherwise
// it returns nil
func openLibrary(ctx context.Context) *library.Library {
	dbURL := viper.GetString("db.url")
	if dbURL == "" {
		return nil
	}

	myLibrary := &library.Library{DBUrl: dbURL}
	if err := myLibrary.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not connect to catalog database")
	}

	return myLibrary
}

func parseKinds(names []string) []data.StatementKind {
	if len(names) == 0 {
		return data.AllStatementKinds
	}

	kinds := make([]data.StatementKind, 0, len(names))
	for _, name := range names {
		if name == "all" {
			return data.AllStatementKinds
		}

		kind, err := data.ParseStatementKind(name)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid statement kind")
		}
		kinds = append(kinds, kind)
	}

	return kinds
}
