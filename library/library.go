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
package library

import (
	"context"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/penny-vault/pvsec/data"
	"github.com/rs/zerolog/log"
)

// Library is an optional PostgreSQL catalog of pipeline runs and the filings
// they discovered
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// Run is a row of the runs table
type Run struct {
	ID            uuid.UUID `db:"id"`
	Ticker        string    `db:"ticker"`
	Form          string    `db:"form"`
	StartTime     time.Time `db:"start_time"`
	EndTime       time.Time `db:"end_time"`
	NumRecords    int       `db:"num_records"`
	NumArtifacts  int       `db:"num_artifacts"`
	NumDownloaded int       `db:"num_downloaded"`
	NumTables     int       `db:"num_tables"`
	NumExported   int       `db:"num_exported"`
	Failures      []string  `db:"failures"`
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	if myLibrary.Pool != nil {
		myLibrary.Pool.Close()
	}
}

// SaveRun records the run summary and any filings not seen before
func (myLibrary *Library) SaveRun(ctx context.Context, summary *data.RunSummary, records []data.IndexRecord) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if !errors.Is(err, pgx.ErrTxClosed) {
				log.Error().Err(err).Msg("error rollingback tx")
			}
		}
	}()

	failures := make([]string, len(summary.Failures))
	for idx, failure := range summary.Failures {
		failures[idx] = failure.Error()
	}

	if _, err := tx.Exec(ctx, `INSERT INTO runs (
		"id", "ticker", "form", "start_time", "end_time", "num_records", "num_artifacts",
		"num_downloaded", "num_tables", "num_exported", "failures"
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		summary.RunID, summary.Ticker, summary.Form, summary.StartTime, summary.EndTime,
		summary.NumRecords, summary.NumArtifacts, summary.NumDownloaded, summary.NumTables,
		summary.NumExported, failures); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`INSERT INTO filings (
			"accession_number", "cik", "ticker", "form_type", "filing_date", "archive_path",
			"source_file", "first_seen_run"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (accession_number) DO NOTHING`,
			rec.AccessionNumber, rec.CIK, summary.Ticker, rec.FormType, rec.FilingDate,
			rec.ArchiveRelativePath, rec.SourceFile, summary.RunID)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Debug().Str("RunID", summary.RunID.String()).Int("NumFilings", len(records)).Msg("saved run to catalog")
	return nil
}

// Filings returns the cataloged filings for a ticker, oldest first
func (myLibrary *Library) Filings(ctx context.Context, ticker, form string) ([]*data.IndexRecord, error) {
	var filings []*data.IndexRecord
	err := pgxscan.Select(ctx, myLibrary.Pool, &filings,
		`SELECT form_type, filing_date, archive_path, accession_number, cik, source_file
FROM filings WHERE ticker=$1 AND form_type=$2 ORDER BY filing_date, accession_number`, ticker, form)
	return filings, err
}

// Runs returns the most recent runs for a ticker
func (myLibrary *Library) Runs(ctx context.Context, ticker string, limit int) ([]*Run, error) {
	var runs []*Run
	err := pgxscan.Select(ctx, myLibrary.Pool, &runs,
		`SELECT id, ticker, form, start_time, end_time, num_records, num_artifacts, num_downloaded,
num_tables, num_exported, failures FROM runs WHERE ticker=$1 ORDER BY start_time DESC LIMIT $2`, ticker, limit)
	return runs, err
}
