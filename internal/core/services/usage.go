// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic for interacting with data
// sources. This file defines the usage ledger that records billable render
// minutes. Reporting is idempotent: the ledger is keyed by the job ID, so a
// job that is reaped and re-run bills its customer once.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/bigquery"
)

// UsageRecord is one billable entry: the whole-minute render cost of a
// completed job.
type UsageRecord struct {
	IdempotencyKey  string `bigquery:"idempotency_key" json:"idempotency_key"`
	JobID           string `bigquery:"job_id" json:"job_id"`
	OwnerID         string `bigquery:"owner_id" json:"owner_id"`
	OrgID           string `bigquery:"org_id" json:"org_id"`
	BillableMinutes int64  `bigquery:"billable_minutes" json:"billable_minutes"`
}

// UsageLedger records billable usage for completed jobs.
type UsageLedger interface {
	// Report upserts the record by its idempotency key. Reporting the same
	// key twice is a no-op on the second call.
	Report(ctx context.Context, rec *UsageRecord) error
}

// BigQueryUsageLedger implements UsageLedger with a MERGE statement, so the
// ledger de-duplicates at the database rather than in worker memory.
type BigQueryUsageLedger struct {
	Client      *bigquery.Client
	DatasetName string
	UsageTable  string
}

// NewBigQueryUsageLedger creates a ledger bound to the configured table.
func NewBigQueryUsageLedger(client *bigquery.Client, dataset string, table string) *BigQueryUsageLedger {
	return &BigQueryUsageLedger{Client: client, DatasetName: dataset, UsageTable: table}
}

func (l *BigQueryUsageLedger) fqn() string {
	name := l.Client.Dataset(l.DatasetName).Table(l.UsageTable).FullyQualifiedName()
	return strings.Replace(name, ":", ".", -1)
}

// Report upserts the usage record keyed by its idempotency key.
func (l *BigQueryUsageLedger) Report(ctx context.Context, rec *UsageRecord) error {
	if rec.IdempotencyKey == "" {
		return fmt.Errorf("usage record for job %s has no idempotency key", rec.JobID)
	}
	q := l.Client.Query(fmt.Sprintf(QryMergeUsage, l.fqn()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "key", Value: rec.IdempotencyKey},
		{Name: "job_id", Value: rec.JobID},
		{Name: "owner_id", Value: rec.OwnerID},
		{Name: "org_id", Value: rec.OrgID},
		{Name: "minutes", Value: rec.BillableMinutes},
	}
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

// MemoryUsageLedger is the in-process ledger used by tests. It applies the
// same first-write-wins rule as the MERGE.
type MemoryUsageLedger struct {
	mu      sync.Mutex
	records map[string]*UsageRecord
}

// NewMemoryUsageLedger creates an empty in-memory ledger.
func NewMemoryUsageLedger() *MemoryUsageLedger {
	return &MemoryUsageLedger{records: make(map[string]*UsageRecord)}
}

func (l *MemoryUsageLedger) Report(_ context.Context, rec *UsageRecord) error {
	if rec.IdempotencyKey == "" {
		return fmt.Errorf("usage record for job %s has no idempotency key", rec.JobID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.IdempotencyKey]; ok {
		return nil
	}
	cp := *rec
	l.records[rec.IdempotencyKey] = &cp
	return nil
}

// Records returns a copy of the stored entries for assertions.
func (l *MemoryUsageLedger) Records() []*UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*UsageRecord, 0, len(l.records))
	for _, rec := range l.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out
}
