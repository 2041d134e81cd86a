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
package healthcheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/pvsec/data"
	"github.com/penny-vault/pvsec/pkginfo"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// Monitor pings a healthchecks.io check around a batch of pipeline runs. An
// empty PingURL disables it.
type Monitor struct {
	PingURL string

	client *resty.Client
}

func New(pingURL string) *Monitor {
	return &Monitor{
		PingURL: strings.TrimSuffix(pingURL, "/"),
		client:  resty.New().SetHeader("User-Agent", pkginfo.UserAgentSuffix()),
	}
}

func (monitor *Monitor) Enabled() bool {
	return monitor != nil && monitor.PingURL != ""
}

// Start signals that a run has begun
func (monitor *Monitor) Start() error {
	return monitor.post("/start", "")
}

// Finish reports success, or failure with the failure list as the body when
// any item failed
func (monitor *Monitor) Finish(summaries ...*data.RunSummary) error {
	builder := strings.Builder{}
	failed := false

	for _, summary := range summaries {
		builder.WriteString(fmt.Sprintf("%s %s: %d exported, %d failures\n", summary.Ticker, summary.Form, summary.NumExported, len(summary.Failures)))
		for _, failure := range summary.Failures {
			failed = true
			builder.WriteString(fmt.Sprintf("  %s\n", failure.Error()))
		}
	}

	if failed {
		return monitor.post("/fail", builder.String())
	}

	return monitor.post("", builder.String())
}

// Fail reports a run that aborted
func (monitor *Monitor) Fail(err error) error {
	return monitor.post("/fail", err.Error())
}

func (monitor *Monitor) post(suffix, body string) error {
	if !monitor.Enabled() {
		return nil
	}

	resp, err := monitor.client.R().
		SetHeader("Content-Type", "text/plain").
		SetBody(body).
		Post(monitor.PingURL + suffix)

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
