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
package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownStatementKind = errors.New("unknown statement kind")
)

// Stage names the pipeline step a failure occurred in
type Stage string

const (
	StageIndex    Stage = "index"
	StageDownload Stage = "download"
	StageExtract  Stage = "extract"
	StageExport   Stage = "export"
)

// Failure records a single item that could not be processed in a batch
// operation. Batches never abort on a Failure.
type Failure struct {
	Stage Stage
	Item  string
	Err   error
}

func (failure Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", failure.Stage, failure.Item, failure.Err)
}

func (failure Failure) Unwrap() error {
	return failure.Err
}

// RunSummary describes one pipeline run for a ticker
type RunSummary struct {
	RunID     uuid.UUID
	Ticker    string
	Form      string
	StartTime time.Time
	EndTime   time.Time

	NumRecords    int
	NumArtifacts  int
	NumDownloaded int
	NumTables     int
	NumExported   int

	Failures []Failure
}

// NewRunSummary creates a summary with a fresh run id and the start time set
func NewRunSummary(ticker, form string) *RunSummary {
	return &RunSummary{
		RunID:     uuid.New(),
		Ticker:    ticker,
		Form:      form,
		StartTime: time.Now(),
	}
}

func (summary *RunSummary) Failed() bool {
	return len(summary.Failures) > 0
}
