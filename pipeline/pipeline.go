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
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/penny-vault/pvsec/archive"
	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/export"
	"github.com/penny-vault/pvsec/fetch"
	"github.com/penny-vault/pvsec/index"
	"github.com/penny-vault/pvsec/statement"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resolver maps a ticker to its reference record
type Resolver interface {
	Resolve(ticker string) (data.ReferenceRecord, error)
}

// Downloader retrieves artifacts into their local paths
type Downloader interface {
	Download(ctx context.Context, refs []data.ArtifactReference) *fetch.BatchResult
}

// Catalog records what a run discovered. Optional.
type Catalog interface {
	SaveRun(ctx context.Context, summary *data.RunSummary, records []data.IndexRecord) error
}

type Options struct {
	Form   string
	Kinds  []data.StatementKind
	Since  time.Time
	Format string
	Force  bool
}

type Result struct {
	Reference data.ReferenceRecord
	Records   []data.IndexRecord
	Artifacts []data.ArtifactReference
	Tables    map[data.StatementKind][]*data.StatementTable
	Exported  []string
	Failures  []data.Failure
	Summary   *data.RunSummary
}

// Pipeline runs resolve -> scan -> locate -> download -> extract -> export
// for one ticker at a time
type Pipeline struct {
	Layout     cache.Layout
	Resolver   Resolver
	Downloader Downloader
	Extractor  *statement.Extractor
	Catalog    Catalog
	BaseURL    string
}

// Run processes ticker. Errors returned abort the ticker (unknown ticker,
// cache directories that cannot be created); per-item problems are collected
// in Result.Failures.
func (pipeline *Pipeline) Run(ctx context.Context, ticker string, opts Options) (*Result, error) {
	ticker, err := cache.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	if opts.Form == "" {
		opts.Form = "10-K"
	}

	form, err := cache.NormalizeForm(opts.Form)
	if err != nil {
		return nil, err
	}

	if len(opts.Kinds) == 0 {
		opts.Kinds = data.AllStatementKinds
	}

	summary := data.NewRunSummary(ticker, form)
	logger := log.With().Str("RunID", summary.RunID.String()).Str("Ticker", ticker).Str("Form", form).Logger()
	ctx = logger.WithContext(ctx)

	result := &Result{
		Tables:   make(map[data.StatementKind][]*data.StatementTable),
		Exported: make([]string, 0),
		Failures: make([]data.Failure, 0),
		Summary:  summary,
	}

	defer func() {
		summary.EndTime = time.Now()
		summary.Failures = result.Failures
	}()

	// resolve
	result.Reference, err = pipeline.Resolver.Resolve(ticker)
	if err != nil {
		logger.Error().Err(err).Msg("could not resolve ticker")
		return nil, err
	}
	logger.Info().Object("Reference", result.Reference).Msg("resolved ticker")

	if err := pipeline.ensureDirs(ticker, form, opts.Kinds); err != nil {
		logger.Error().Err(err).Msg("could not create cache directories")
		return nil, err
	}

	// scan
	indexFiles, err := pipeline.Layout.IndexFiles()
	if err != nil {
		return nil, fmt.Errorf("list index files: %w", err)
	}

	if len(indexFiles) == 0 {
		logger.Warn().Str("IndexDir", pipeline.Layout.IndexDir()).Msg("no master index files cached, run `pvsec index` first")
	}

	scanned := index.Scan(result.Reference.CIK, form, indexFiles)
	result.Failures = append(result.Failures, scanned.Failures...)
	result.Records = index.Since(scanned.Records, opts.Since)
	summary.NumRecords = len(result.Records)
	logger.Info().Int("NumIndexFiles", len(indexFiles)).Int("NumRecords", len(result.Records)).Msg("scanned master index")

	// locate
	locator := archive.Locator{
		BaseURL: pipeline.BaseURL,
		Layout:  pipeline.Layout,
		Ticker:  ticker,
		Form:    form,
	}

	result.Artifacts, err = locator.Locate(result.Records)
	if err != nil {
		return nil, err
	}
	summary.NumArtifacts = len(result.Artifacts)

	// download
	downloaded := pipeline.Downloader.Download(ctx, result.Artifacts)
	result.Failures = append(result.Failures, downloaded.Failures...)
	summary.NumDownloaded = downloaded.Downloaded
	logger.Info().Int("Downloaded", downloaded.Downloaded).Int("Skipped", downloaded.Skipped).Int("Failed", len(downloaded.Failures)).Msg("retrieved artifacts")

	// extract, skipping workbooks that were fully exported by a previous run
	exporter := &export.Exporter{
		Layout: pipeline.Layout,
		Ticker: ticker,
		Form:   form,
		Format: opts.Format,
		Force:  opts.Force,
	}

	pending := make([]string, 0, len(downloaded.Paths))
	for _, path := range downloaded.Paths {
		if exporter.Done(path, opts.Kinds) {
			logger.Debug().Str("FileName", path).Msg("statements already exported")
			continue
		}
		pending = append(pending, path)
	}

	extracted := pipeline.Extractor.ExtractAll(pending, opts.Kinds)
	result.Failures = append(result.Failures, extracted.Failures...)
	result.Tables = extracted.Tables
	summary.NumTables = extracted.Count()

	// export
	exported := exporter.Export(result.Tables)
	result.Failures = append(result.Failures, exported.Failures...)
	result.Exported = exported.Paths
	summary.NumExported = len(exported.Paths)

	if pipeline.Catalog != nil {
		summary.EndTime = time.Now()
		summary.Failures = result.Failures
		if err := pipeline.Catalog.SaveRun(ctx, summary, result.Records); err != nil {
			logger.Error().Err(err).Msg("could not save run to catalog")
		}
	}

	logSummary(logger, summary, len(result.Failures))

	return result, nil
}

func (pipeline *Pipeline) ensureDirs(ticker, form string, kinds []data.StatementKind) error {
	artifactDir, err := pipeline.Layout.ArtifactDir(ticker, form)
	if err != nil {
		return err
	}

	if err := cache.Ensure(artifactDir); err != nil {
		return err
	}

	for _, kind := range kinds {
		exportDir, err := pipeline.Layout.ExportDir(ticker, form, kind)
		if err != nil {
			return err
		}

		if err := cache.Ensure(exportDir); err != nil {
			return err
		}
	}

	return nil
}

func logSummary(logger zerolog.Logger, summary *data.RunSummary, numFailures int) {
	event := logger.Info()
	if numFailures > 0 {
		event = logger.Warn()
	}

	event.Int("NumRecords", summary.NumRecords).
		Int("NumArtifacts", summary.NumArtifacts).
		Int("NumDownloaded", summary.NumDownloaded).
		Int("NumTables", summary.NumTables).
		Int("NumExported", summary.NumExported).
		Int("NumFailures", numFailures).
		Msg("pipeline run complete")
}
