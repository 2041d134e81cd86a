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
package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/export"
	"github.com/penny-vault/pvsec/fetch"
	"github.com/penny-vault/pvsec/pipeline"
	"github.com/penny-vault/pvsec/reference"
	"github.com/penny-vault/pvsec/statement"
)

const appleIndex = `CIK|Company Name|Form Type|Date Filed|Filename
--------------------------------------------------------------------------------
320193|Apple Inc.|10-K|2023-11-03|edgar/data/320193/0000320193-23-000106.txt
320193|Apple Inc.|10-Q|2023-08-04|edgar/data/320193/0000320193-23-000077.txt
`

var statementSheets = map[string][][]string{
	"Consolidated_Statements_of_Inc": {
		{"Consolidated Statements of Operations - USD ($) $ in Millions", "12 Months Ended Sep. 30, 2023"},
		{"Net sales", "383,285"},
		{"Net income", "96,995"},
	},
	"Consolidated_Balance_Sheets": {
		{"Consolidated Balance Sheets - USD ($) $ in Millions", "Sep. 30, 2023"},
		{"Total assets", "352,583"},
	},
	"Consolidated_Statements_of_Cash": {
		{"Consolidated Statements of Cash Flows - USD ($) $ in Millions", "12 Months Ended Sep. 30, 2023"},
		{"Cash generated by operating activities", "110,543"},
	},
}

func writeFinancialReport(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range statementSheets {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}

		for idx, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, idx+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for col, val := range row {
				values[col] = val
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return f.SaveAs(path)
}

// stubDownloader writes a generated Financial_Report.xlsx instead of
// contacting the archive
type stubDownloader struct {
	requested []string
}

func (downloader *stubDownloader) Download(_ context.Context, refs []data.ArtifactReference) *fetch.BatchResult {
	result := &fetch.BatchResult{}
	for _, ref := range refs {
		if cache.Exists(ref.LocalPath) {
			result.Skipped++
			result.Paths = append(result.Paths, ref.LocalPath)
			continue
		}

		downloader.requested = append(downloader.requested, ref.URL)
		if err := writeFinancialReport(ref.LocalPath); err != nil {
			result.Failures = append(result.Failures, data.Failure{Stage: data.StageDownload, Item: ref.URL, Err: err})
			continue
		}

		result.Downloaded++
		result.Paths = append(result.Paths, ref.LocalPath)
	}
	return result
}

type stubCatalog struct {
	summaries []*data.RunSummary
	records   [][]data.IndexRecord
	err       error
}

func (catalog *stubCatalog) SaveRun(_ context.Context, summary *data.RunSummary, records []data.IndexRecord) error {
	catalog.summaries = append(catalog.summaries, summary)
	catalog.records = append(catalog.records, records)
	return catalog.err
}

var _ = Describe("Pipeline", func() {
	var (
		ctx        context.Context
		layout     cache.Layout
		downloader *stubDownloader
		catalog    *stubCatalog
		myPipeline *pipeline.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		layout = cache.New(GinkgoT().TempDir())

		Expect(cache.Ensure(layout.IndexDir())).To(Succeed())
		Expect(os.WriteFile(layout.IndexFile(2023, 4), []byte(appleIndex), 0o644)).To(Succeed())

		downloader = &stubDownloader{}
		catalog = &stubCatalog{}

		myPipeline = &pipeline.Pipeline{
			Layout: layout,
			Resolver: reference.NewTable([]data.ReferenceRecord{
				{Ticker: "AAPL", CIK: 320193, Title: "Apple Inc.", Exchange: "Nasdaq"},
				{Ticker: "MSFT", CIK: 789019, Title: "MICROSOFT CORP", Exchange: "Nasdaq"},
			}),
			Downloader: downloader,
			Extractor:  statement.NewExtractor(nil),
			Catalog:    catalog,
		}
	})

	It("exports each statement of the annual report", func() {
		result, err := myPipeline.Run(ctx, "aapl", pipeline.Options{Form: "10-K"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())

		Expect(result.Reference.CIK).To(Equal(int64(320193)))
		Expect(result.Records).To(HaveLen(1))
		Expect(result.Artifacts).To(HaveLen(1))
		Expect(downloader.requested).To(Equal([]string{
			"https://www.sec.gov/Archives/edgar/data/320193/000032019323000106/Financial_Report.xlsx",
		}))

		for _, kind := range data.AllStatementKinds {
			Expect(result.Tables[kind]).To(HaveLen(1), string(kind))
			Expect(result.Tables[kind][0].Rows).NotTo(BeEmpty(), string(kind))

			exported, err := export.LoadAll(layout, "AAPL", "10-K", kind)
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(HaveLen(1))
			Expect(exported[0].Columns).To(Equal(statementSheets[result.Tables[kind][0].Sheet][0]))
		}

		Expect(result.Exported).To(HaveLen(3))

		summary := result.Summary
		Expect(summary.Ticker).To(Equal("AAPL"))
		Expect(summary.NumRecords).To(Equal(1))
		Expect(summary.NumDownloaded).To(Equal(1))
		Expect(summary.NumTables).To(Equal(3))
		Expect(summary.NumExported).To(Equal(3))
		Expect(summary.EndTime).NotTo(BeZero())

		Expect(catalog.summaries).To(HaveLen(1))
		Expect(catalog.records[0]).To(HaveLen(1))
		Expect(catalog.records[0][0].AccessionNumber).To(Equal("0000320193-23-000106"))
	})

	It("only retrieves what is new on a second run", func() {
		_, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{Form: "10-K"})
		Expect(err).NotTo(HaveOccurred())

		again, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{Form: "10-K"})
		Expect(err).NotTo(HaveOccurred())
		Expect(downloader.requested).To(HaveLen(1))
		Expect(again.Summary.NumDownloaded).To(Equal(0))
		Expect(again.Summary.NumTables).To(Equal(0))
		Expect(again.Exported).To(BeEmpty())
		Expect(again.Failures).To(BeEmpty())
	})

	It("limits exports to the requested kinds", func() {
		result, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{
			Form:  "10-Q",
			Kinds: []data.StatementKind{data.BalanceSheet},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Records).To(HaveLen(1))
		Expect(result.Records[0].AccessionNumber).To(Equal("0000320193-23-000077"))
		Expect(result.Tables).To(HaveKey(data.BalanceSheet))
		Expect(result.Tables).NotTo(HaveKey(data.IncomeStatement))
		Expect(result.Exported).To(HaveLen(1))
	})

	It("filters filings by date", func() {
		result, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{
			Form:  "10-K",
			Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Records).To(BeEmpty())
		Expect(downloader.requested).To(BeEmpty())
	})

	It("finishes with no filings when nothing matches", func() {
		result, err := myPipeline.Run(ctx, "MSFT", pipeline.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Records).To(BeEmpty())
		Expect(result.Exported).To(BeEmpty())
		Expect(result.Summary.Form).To(Equal("10-K"))
	})

	It("aborts the ticker when it cannot be resolved", func() {
		_, err := myPipeline.Run(ctx, "ZZZZ", pipeline.Options{Form: "10-K"})
		Expect(err).To(MatchError(reference.ErrNotFound))
		Expect(downloader.requested).To(BeEmpty())
		Expect(catalog.summaries).To(BeEmpty())
	})

	It("records unreadable downloads and keeps the run going", func() {
		artifact, err := layout.Artifact("AAPL", "10-K", "0000320193-23-000106")
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.Ensure(filepath.Dir(artifact))).To(Succeed())
		Expect(os.WriteFile(artifact, []byte("<html>rate limited</html>"), 0o644)).To(Succeed())

		result, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{Form: "10-K"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(HaveLen(1))
		Expect(result.Failures[0].Stage).To(Equal(data.StageExtract))
		Expect(result.Failures[0].Err).To(MatchError(statement.ErrUnreadable))
		Expect(result.Summary.Failed()).To(BeTrue())
	})

	It("keeps going when the catalog is unavailable", func() {
		catalog.err = errors.New("connection refused")

		result, err := myPipeline.Run(ctx, "AAPL", pipeline.Options{Form: "10-K"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Exported).To(HaveLen(3))
	})
})
