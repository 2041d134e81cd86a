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
package archive_test

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvsec/archive"
	"github.com/penny-vault/pvsec/cache"
	"github.com/penny-vault/pvsec/data"
)

var _ = Describe("Locator", func() {
	var (
		root    string
		locator archive.Locator
		annual  data.IndexRecord
		prior   data.IndexRecord
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		locator = archive.Locator{
			Layout: cache.New(root),
			Ticker: "AAPL",
			Form:   "10-K",
		}

		annual = data.IndexRecord{
			FormType:            "10-K",
			FilingDate:          time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC),
			ArchiveRelativePath: "edgar/data/320193/",
			AccessionNumber:     "0000320193-23-000106",
			CIK:                 320193,
		}

		prior = data.IndexRecord{
			FormType:            "10-K",
			FilingDate:          time.Date(2022, 10, 28, 0, 0, 0, 0, time.UTC),
			ArchiveRelativePath: "edgar/data/320193/",
			AccessionNumber:     "0000320193-22-000108",
			CIK:                 320193,
		}
	})

	It("builds the Financial_Report.xlsx url for a filing", func() {
		Expect(archive.Directory(annual)).To(Equal("edgar/data/320193/000032019323000106"))
		Expect(archive.URL("", annual)).To(Equal("https://www.sec.gov/Archives/edgar/data/320193/000032019323000106/Financial_Report.xlsx"))
		Expect(archive.URL("http://127.0.0.1:8080/archive", annual)).To(Equal("http://127.0.0.1:8080/archive/edgar/data/320193/000032019323000106/Financial_Report.xlsx"))
	})

	It("maps each record to a distinct url and local path", func() {
		refs, err := locator.Locate([]data.IndexRecord{prior, annual})
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(HaveLen(2))

		Expect(refs[0].Accession).To(Equal(prior.AccessionNumber))
		Expect(refs[1].URL).To(Equal(archive.URL(archive.DefaultBaseURL, annual)))
		Expect(refs[1].LocalPath).To(Equal(filepath.Join(root, "AAPL_reports", "10-Ks", "xlsx", "AAPL_000032019323000106.xlsx")))
		Expect(refs[0].URL).NotTo(Equal(refs[1].URL))
		Expect(refs[0].LocalPath).NotTo(Equal(refs[1].LocalPath))
	})

	It("locates a filing listed twice only once", func() {
		refs, err := locator.Locate([]data.IndexRecord{annual, prior, annual})
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(HaveLen(2))
	})

	It("returns an empty list for no records", func() {
		refs, err := locator.Locate(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(refs).To(BeEmpty())
	})

	It("fails for tickers that cannot be used in a path", func() {
		locator.Ticker = "../../tmp"
		_, err := locator.Locate([]data.IndexRecord{annual})
		Expect(err).To(MatchError(cache.ErrInvalidTicker))
	})
})
