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
package export_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/export"
)

func balanceTable(source string) *data.StatementTable {
	return &data.StatementTable{
		Kind:    data.BalanceSheet,
		Sheet:   "Consolidated_Balance_Sheets",
		Source:  source,
		Columns: []string{"Consolidated Balance Sheets - USD ($) $ in Millions", "Sep. 30, 2023", "Sep. 24, 2022"},
		Rows: [][]string{
			{"Current assets:", "", ""},
			{"Cash and cash equivalents", "29,965", "23,646"},
			{"Vendor \"non-trade\" receivables", "31,477", "32,748"},
		},
	}
}

var _ = Describe("CSV", func() {
	It("writes the table without transforming any cell", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "balance.csv")
		table := balanceTable("AAPL_000032019323000106.xlsx")

		Expect(export.WriteCSV(table, fn)).To(Succeed())

		loaded, err := export.ReadCSV(fn, data.BalanceSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Columns).To(Equal(table.Columns))
		Expect(loaded.Rows).To(Equal(table.Rows))

		raw, err := os.ReadFile(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Split(string(raw), "\n")[0]).To(Equal(`Consolidated Balance Sheets - USD ($) $ in Millions,"Sep. 30, 2023","Sep. 24, 2022"`))
	})

	It("writes only the header for a statement without rows", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "empty.csv")
		table := &data.StatementTable{Kind: data.IncomeStatement, Columns: []string{"Label", "Value"}}

		Expect(export.WriteCSV(table, fn)).To(Succeed())

		loaded, err := export.ReadCSV(fn, data.IncomeStatement)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Columns).To(Equal([]string{"Label", "Value"}))
		Expect(loaded.Rows).To(BeEmpty())
	})
})

var _ = Describe("Exporter", func() {
	var (
		layout   cache.Layout
		exporter *export.Exporter
		source   string
	)

	BeforeEach(func() {
		layout = cache.New(GinkgoT().TempDir())
		exporter = &export.Exporter{Layout: layout, Ticker: "AAPL", Form: "10-K"}

		var err error
		source, err = layout.Artifact("AAPL", "10-K", "0000320193-23-000106")
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes one file per table next to the artifact name", func() {
		result := exporter.Export(map[data.StatementKind][]*data.StatementTable{
			data.BalanceSheet: {balanceTable(source)},
		})
		Expect(result.Failures).To(BeEmpty())

		expected, err := layout.Export("AAPL", "10-K", data.BalanceSheet, "AAPL_000032019323000106", "csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Paths).To(Equal([]string{expected}))
		Expect(cache.Exists(expected)).To(BeTrue())

		Expect(exporter.Done(source, []data.StatementKind{data.BalanceSheet})).To(BeTrue())
		Expect(exporter.Done(source, data.AllStatementKinds)).To(BeFalse())
	})

	It("skips tables that were already exported unless forced", func() {
		tables := map[data.StatementKind][]*data.StatementTable{
			data.BalanceSheet: {balanceTable(source)},
		}

		Expect(exporter.Export(tables).Paths).To(HaveLen(1))

		again := exporter.Export(tables)
		Expect(again.Paths).To(BeEmpty())
		Expect(again.Skipped).To(Equal(1))

		exporter.Force = true
		Expect(exporter.Export(tables).Paths).To(HaveLen(1))
		Expect(exporter.Done(source, []data.StatementKind{data.BalanceSheet})).To(BeFalse())
	})

	It("loads exported statements back in file name order", func() {
		older, err := layout.Artifact("AAPL", "10-K", "0000320193-22-000108")
		Expect(err).NotTo(HaveOccurred())

		exporter.Export(map[data.StatementKind][]*data.StatementTable{
			data.BalanceSheet: {balanceTable(source), balanceTable(older)},
		})

		tables, err := export.LoadAll(layout, "aapl", "10-K", data.BalanceSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(HaveLen(2))
		Expect(filepath.Base(tables[0].Source)).To(Equal("AAPL_000032019322000108.csv"))
		Expect(tables[1].Rows[1]).To(Equal([]string{"Cash and cash equivalents", "29,965", "23,646"}))

		none, err := export.LoadAll(layout, "MSFT", "10-K", data.BalanceSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})

	It("writes parquet files when asked", func() {
		exporter.Format = export.FormatParquet

		path, err := exporter.Write(balanceTable(source))
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Ext(path)).To(Equal(".parquet"))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(BeNumerically(">", 0))
	})

	It("records unknown formats as failures", func() {
		exporter.Format = "xml"

		result := exporter.Export(map[data.StatementKind][]*data.StatementTable{
			data.BalanceSheet: {balanceTable(source)},
		})
		Expect(result.Paths).To(BeEmpty())
		Expect(result.Failures).To(HaveLen(1))
		Expect(result.Failures[0].Err).To(MatchError(export.ErrUnknownFormat))
	})
})

var _ = Describe("ColumnNames", func() {
	It("produces unique parquet safe names", func() {
		names := export.ColumnNames([]string{"Sep. 30, 2023", "Sep. 30, 2023", "", "Net Sales"})
		Expect(names).To(Equal([]string{"sep_30_2023", "sep_30_2023_1", "column_2", "net_sales"}))
	})
})
