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
package cache_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
)

var _ = Describe("Layout", func() {
	var (
		root   string
		layout cache.Layout
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		layout = cache.New(root)
	})

	It("places the reference table and index files under the root", func() {
		Expect(layout.ReferenceFile()).To(Equal(filepath.Join(root, "company_tickers.json")))
		Expect(layout.IndexFile(2023, 4)).To(Equal(filepath.Join(root, "edgar_master_index", "master2023QTR4.idx")))
	})

	It("builds artifact and export paths for a ticker", func() {
		artifact, err := layout.Artifact("aapl", "10-k", "0000320193-23-000106")
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact).To(Equal(filepath.Join(root, "AAPL_reports", "10-Ks", "xlsx", "AAPL_000032019323000106.xlsx")))

		exportPath, err := layout.Export("AAPL", "10-K", data.BalanceSheet, cache.Stem(artifact), "csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(exportPath).To(Equal(filepath.Join(root, "AAPL_reports", "10-Ks", "csv", "balance_sheets", "AAPL_000032019323000106.csv")))
	})

	It("keeps amended forms in their own directory", func() {
		dir, err := layout.ReportDir("AAPL", "10-K/A")
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(Equal(filepath.Join(root, "AAPL_reports", "10-K-As")))
	})

	It("rejects unsafe tickers and unknown kinds", func() {
		_, err := layout.ReportDir("../etc", "10-K")
		Expect(err).To(MatchError(cache.ErrInvalidTicker))

		_, err = layout.ReportDir("AAPL", "")
		Expect(err).To(MatchError(cache.ErrInvalidForm))

		_, err = layout.ExportDir("AAPL", "10-K", data.StatementKind("equity"))
		Expect(err).To(MatchError(cache.ErrInvalidKind))

		_, err = layout.Export("AAPL", "10-K", data.IncomeStatement, "../x", "csv")
		Expect(err).To(HaveOccurred())
	})

	It("normalizes tickers with share classes", func() {
		ticker, err := cache.NormalizeTicker(" brk.b ")
		Expect(err).NotTo(HaveOccurred())
		Expect(ticker).To(Equal("BRK.B"))
	})

	Context("listing master index files", func() {
		It("returns an empty list when nothing is cached", func() {
			files, err := layout.IndexFiles()
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})

		It("returns index files in period order and ignores everything else", func() {
			Expect(cache.Ensure(layout.IndexDir())).To(Succeed())
			for _, name := range []string{"master2023QTR2.idx", "master2022QTR4.idx", "master2023QTR1.idx", "notes.txt", "master2023QTR1.idx.part"} {
				Expect(os.WriteFile(filepath.Join(layout.IndexDir(), name), []byte("x"), 0o644)).To(Succeed())
			}

			files, err := layout.IndexFiles()
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(Equal([]string{
				layout.IndexFile(2022, 4),
				layout.IndexFile(2023, 1),
				layout.IndexFile(2023, 2),
			}))
		})
	})

	It("reports whether a regular file exists", func() {
		fn := filepath.Join(root, "exists.txt")
		Expect(cache.Exists(fn)).To(BeFalse())
		Expect(os.WriteFile(fn, []byte("x"), 0o644)).To(Succeed())
		Expect(cache.Exists(fn)).To(BeTrue())
		Expect(cache.Exists(root)).To(BeFalse())
	})
})

var _ = Describe("Inventory", func() {
	It("counts cached artifacts and exports", func() {
		layout := cache.New(GinkgoT().TempDir())

		artifact, err := layout.Artifact("AAPL", "10-K", "0000320193-23-000106")
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.Ensure(filepath.Dir(artifact))).To(Succeed())
		Expect(os.WriteFile(artifact, make([]byte, 2048), 0o644)).To(Succeed())

		for _, kind := range []data.StatementKind{data.IncomeStatement, data.BalanceSheet} {
			fn, err := layout.Export("AAPL", "10-K", kind, cache.Stem(artifact), "csv")
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.Ensure(filepath.Dir(fn))).To(Succeed())
			Expect(os.WriteFile(fn, []byte("a,b\n"), 0o644)).To(Succeed())
		}

		inv, err := layout.TakeInventory("aapl", "10-K")
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Ticker).To(Equal("AAPL"))
		Expect(inv.Artifacts).To(Equal(1))
		Expect(inv.Bytes).To(Equal(int64(2048)))
		Expect(inv.Exports[data.IncomeStatement]).To(Equal(1))
		Expect(inv.Exports[data.BalanceSheet]).To(Equal(1))
		Expect(inv.Exports[data.CashFlowStatement]).To(Equal(0))
		Expect(inv.LastUpdated).To(BeTemporally("~", time.Now(), time.Minute))

		summary := inv.Summary()
		Expect(summary).To(ContainSubstring("# AAPL 10-K reports"))
		Expect(summary).To(ContainSubstring("Spreadsheets: 1"))
		Expect(summary).To(ContainSubstring("balance_sheets: 1"))
	})

	It("reports an empty cache as never updated", func() {
		inv, err := cache.New(GinkgoT().TempDir()).TakeInventory("MSFT", "10-Q")
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Artifacts).To(Equal(0))
		Expect(inv.Summary()).To(ContainSubstring("Last Updated: Never"))
	})
})
