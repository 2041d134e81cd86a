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
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// EDGAR allows at most 10 requests per second from one client
	DefaultCallsPerSecond = 10
	DefaultMaxRetries     = 5
	DefaultIndexBaseURL   = "https://www.sec.gov/Archives/edgar/full-index/"

	chunkSize = 15000
)

var (
	ErrTransient = errors.New("transient retrieval failure")
	ErrPermanent = errors.New("permanent retrieval failure")
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.2420.81",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// RandomUserAgent picks a browser identity for this process
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// NewLimiter returns a limiter admitting calls requests per period with a
// burst of calls. Callers block in Wait until the window admits them.
func NewLimiter(calls int, period time.Duration) *rate.Limiter {
	if calls <= 0 {
		calls = DefaultCallsPerSecond
	}
	if period <= 0 {
		period = time.Second
	}
	return rate.NewLimiter(rate.Every(period/time.Duration(calls)), calls)
}

type Config struct {
	UserAgent    string
	IndexBaseURL string
	MaxRetries   int

	// Limiter is shared by every request the client makes; pass the same
	// limiter to every client in the process to keep one budget
	Limiter *rate.Limiter

	// InitialInterval is the first retry delay, doubled on each attempt
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client retrieves index files and spreadsheets from EDGAR. Every attempt
// waits on the shared rate limiter, transient failures are retried a bounded
// number of times and permanent failures are returned immediately.
type Client struct {
	http            *resty.Client
	limiter         *rate.Limiter
	indexBaseURL    string
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = RandomUserAgent()
	}

	if cfg.IndexBaseURL == "" {
		cfg.IndexBaseURL = DefaultIndexBaseURL
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.Limiter == nil {
		cfg.Limiter = NewLimiter(DefaultCallsPerSecond, time.Second)
	}

	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}

	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}

	httpClient := resty.New().SetHeaders(map[string]string{
		"Connection":       "close",
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"X-Requested-With": "XMLHttpRequest",
		"User-Agent":       cfg.UserAgent,
	})

	return &Client{
		http:            httpClient,
		limiter:         cfg.Limiter,
		indexBaseURL:    cfg.IndexBaseURL,
		maxRetries:      uint64(cfg.MaxRetries),
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
	}
}

// classify maps an HTTP status to nil, ErrTransient or ErrPermanent
func classify(statusCode int) error {
	switch {
	case statusCode == http.StatusOK:
		return nil
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= 500:
		return fmt.Errorf("%w: status code %d", ErrTransient, statusCode)
	default:
		return fmt.Errorf("%w: status code %d", ErrPermanent, statusCode)
	}
}

func (client *Client) newBackOff(ctx context.Context) backoff.BackOff {
	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.InitialInterval = client.initialInterval
	expBackOff.MaxInterval = client.maxInterval
	expBackOff.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(expBackOff, client.maxRetries), ctx)
}

// do issues a GET for url and hands a 200 body to handle. handle errors wrapped
// in ErrTransient are retried, anything else is permanent.
func (client *Client) do(ctx context.Context, url string, handle func(io.Reader) error) error {
	logger := zerolog.Ctx(ctx)

	attempt := 0
	operation := func() error {
		attempt++

		if err := client.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		resp, err := client.http.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}

		body := resp.RawBody()
		defer body.Close()

		if err := classify(resp.StatusCode()); err != nil {
			if errors.Is(err, ErrPermanent) {
				return backoff.Permanent(err)
			}
			return err
		}

		if err := handle(body); err != nil {
			if errors.Is(err, ErrTransient) {
				return err
			}
			return backoff.Permanent(err)
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("URL", url).Int("Attempt", attempt).Dur("Wait", wait).Msg("retrying request")
	}

	if err := backoff.RetryNotify(operation, client.newBackOff(ctx), notify); err != nil {
		logger.Error().Err(err).Str("URL", url).Int("Attempts", attempt).Msg("request failed")
		return err
	}

	return nil
}

// Get returns the body at url. Intended for small documents such as the
// ticker reference table; artifacts should use Fetch.
func (client *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	err := client.do(ctx, url, func(body io.Reader) error {
		buf.Reset()
		if _, err := io.Copy(&buf, body); err != nil {
			return fmt.Errorf("%w: read body: %w", ErrTransient, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Fetch streams the document at url into dest in fixed size chunks. The body
// is written to dest.part and renamed on completion so an interrupted
// download never leaves a file that looks complete.
func (client *Client) Fetch(ctx context.Context, url, dest string) error {
	logger := zerolog.Ctx(ctx)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	}

	var written int64
	err := client.do(ctx, url, func(body io.Reader) error {
		var err error
		written, err = streamToFile(body, dest)
		return err
	})
	if err != nil {
		return err
	}

	logger.Info().Str("URL", url).Str("FileName", dest).Str("Size", humanize.Bytes(uint64(written))).Msg("downloaded file")
	return nil
}

func streamToFile(body io.Reader, dest string) (int64, error) {
	partial := dest + ".part"

	fh, err := os.Create(partial)
	if err != nil {
		return 0, err
	}

	cleanup := func() {
		fh.Close()
		os.Remove(partial)
	}

	var written int64
	chunk := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			if _, err := fh.Write(chunk[:n]); err != nil {
				cleanup()
				return written, err
			}
			written += int64(n)
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			cleanup()
			return written, fmt.Errorf("%w: read body: %w", ErrTransient, readErr)
		}
	}

	if err := fh.Close(); err != nil {
		os.Remove(partial)
		return written, err
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return written, err
	}

	return written, nil
}
