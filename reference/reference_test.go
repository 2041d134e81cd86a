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
package reference_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/reference"
)

type stubGetter struct {
	body []byte
	err  error
	urls []string
}

func (getter *stubGetter) Get(_ context.Context, url string) ([]byte, error) {
	getter.urls = append(getter.urls, url)
	return getter.body, getter.err
}

const exchangeDocument = `{
  "fields": ["cik", "name", "ticker", "exchange"],
  "data": [
    [320193, "Apple Inc.", "AAPL", "Nasdaq"],
    [789019, "MICROSOFT CORP", "MSFT", "Nasdaq"],
    [1652044, "Alphabet Inc.", "GOOGL", "Nasdaq"],
    [1652044, "Alphabet Inc.", "GOOG", "Nasdaq"],
    [0, "Broken Row", "", null]
  ]
}`

var _ = Describe("Table", func() {
	var table *reference.Table

	BeforeEach(func() {
		table = reference.NewTable([]data.ReferenceRecord{
			{Ticker: "msft", CIK: 789019, Title: "MICROSOFT CORP"},
			{Ticker: "AAPL", CIK: 320193, Title: "Apple Inc."},
		})
	})

	It("resolves tickers regardless of case", func() {
		rec, err := table.Resolve("aapl")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.CIK).To(Equal(int64(320193)))

		cik, err := table.CIK("MSFT")
		Expect(err).NotTo(HaveOccurred())
		Expect(cik).To(Equal(int64(789019)))
	})

	It("reports unknown tickers as not found", func() {
		_, err := table.Resolve("ZZZZ")
		Expect(err).To(MatchError(reference.ErrNotFound))
	})

	It("orders records by CIK", func() {
		records := table.Records()
		Expect(records).To(HaveLen(2))
		Expect(records[0].Ticker).To(Equal("AAPL"))
		Expect(records[1].Ticker).To(Equal("MSFT"))
	})

	It("keeps the lowest CIK when a ticker is listed twice", func() {
		dup := reference.NewTable([]data.ReferenceRecord{
			{Ticker: "ABC", CIK: 900},
			{Ticker: "abc", CIK: 100},
		})

		cik, err := dup.CIK("ABC")
		Expect(err).NotTo(HaveOccurred())
		Expect(cik).To(Equal(int64(100)))
	})

	It("saves and loads every ticker of a multi-class filer", func() {
		parsed, err := reference.Parse([]byte(exchangeDocument))
		Expect(err).NotTo(HaveOccurred())

		fn := filepath.Join(GinkgoT().TempDir(), "company_tickers.json")
		Expect(parsed.Save(fn)).To(Succeed())

		loaded, err := reference.Load(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Len()).To(Equal(4))

		for _, ticker := range []string{"GOOG", "GOOGL"} {
			rec, err := loaded.Resolve(ticker)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.CIK).To(Equal(int64(1652044)))
			Expect(rec.Exchange).To(Equal("Nasdaq"))
		}
	})

	It("loads the file published by the SEC", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "company_tickers.json")
		Expect(os.WriteFile(fn, []byte(`{
			"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
			"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
		}`), 0o644)).To(Succeed())

		loaded, err := reference.Load(fn)
		Expect(err).NotTo(HaveOccurred())

		rec, err := loaded.Resolve("aapl")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Title).To(Equal("Apple Inc."))
	})

	It("returns ErrInvalidFormat for a corrupt file", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "company_tickers.json")
		Expect(os.WriteFile(fn, []byte(`[1, 2, 3]`), 0o644)).To(Succeed())

		_, err := reference.Load(fn)
		Expect(err).To(MatchError(reference.ErrInvalidFormat))
	})

	It("returns os.ErrNotExist when nothing is cached", func() {
		_, err := reference.Load(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

var _ = Describe("Download", func() {
	It("parses the positional exchange document and skips broken rows", func() {
		getter := &stubGetter{body: []byte(exchangeDocument)}

		table, err := reference.Download(context.Background(), getter, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(getter.urls).To(Equal([]string{reference.CompanyTickersURL}))
		Expect(table.Len()).To(Equal(4))

		rec, err := table.Resolve("MSFT")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Title).To(Equal("MICROSOFT CORP"))
	})

	It("rejects documents without the fields header", func() {
		getter := &stubGetter{body: []byte(`{"data": [[320193, "Apple Inc.", "AAPL", "Nasdaq"]]}`)}

		_, err := reference.Download(context.Background(), getter, "https://example.com/tickers.json")
		Expect(err).To(MatchError(reference.ErrInvalidFormat))
		Expect(getter.urls).To(Equal([]string{"https://example.com/tickers.json"}))
	})

	It("returns retrieval errors unchanged", func() {
		failed := errors.New("connection refused")
		getter := &stubGetter{err: failed}

		_, err := reference.Download(context.Background(), getter, "")
		Expect(err).To(MatchError(failed))
	})
})
