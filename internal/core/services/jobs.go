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
// sources. This file defines the JobStore, the persistence layer for clip
// jobs and their rendered outputs. The BigQuery implementation relies on DML
// affected-row counts to make the queued-to-processing claim a true
// compare-and-swap, which is what makes at-least-once Pub/Sub delivery safe.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"google.golang.org/api/iterator"
)

// JobStore is the persistence contract for clip jobs. The workflow depends on
// this interface rather than BigQuery directly so tests can run against the
// in-memory implementation.
type JobStore interface {
	// Create persists a new job in the queued state.
	Create(ctx context.Context, job *model.ClipJob) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*model.ClipJob, error)
	// Claim atomically moves a queued job to processing. It returns false
	// when the job is not currently claimable (already processing, done, or
	// failed), which is how duplicate deliveries are dropped.
	Claim(ctx context.Context, id string) (bool, error)
	// UpdateProgress records the current stage and percent complete.
	UpdateProgress(ctx context.Context, id string, stage string, progress int) error
	// MarkDone finalizes a successful job with its actual billable units.
	MarkDone(ctx context.Context, id string, actualUnits int64) error
	// MarkError moves a job to the terminal error state.
	MarkError(ctx context.Context, id string, message string) error
	// Requeue returns a stranded processing job to the queue, incrementing
	// its requeue counter.
	Requeue(ctx context.Context, id string) error
	// ListStale returns processing jobs with no progress update within the
	// staleness window.
	ListStale(ctx context.Context, staleAfter time.Duration) ([]*model.ClipJob, error)
	// ReplaceOutputs swaps the job's output set wholesale, so re-running a
	// job replaces its clips instead of appending duplicates.
	ReplaceOutputs(ctx context.Context, jobID string, outputs []*model.ClipOutput) error
	// Outputs returns a job's outputs in variant order.
	Outputs(ctx context.Context, jobID string) ([]*model.ClipOutput, error)
	// Output retrieves a single output by its ID.
	Output(ctx context.Context, id string) (*model.ClipOutput, error)
}

// BigQueryJobStore implements JobStore on top of BigQuery DML.
type BigQueryJobStore struct {
	Client       *bigquery.Client
	DatasetName  string
	JobsTable    string
	OutputsTable string
}

// NewBigQueryJobStore creates a job store bound to the configured dataset.
func NewBigQueryJobStore(client *bigquery.Client, dataset string, jobsTable string, outputsTable string) *BigQueryJobStore {
	return &BigQueryJobStore{
		Client:       client,
		DatasetName:  dataset,
		JobsTable:    jobsTable,
		OutputsTable: outputsTable,
	}
}

// fqn returns the fully qualified, queryable name for a table, with the
// project separator rewritten for standard SQL.
func (s *BigQueryJobStore) fqn(table string) string {
	name := s.Client.Dataset(s.DatasetName).Table(table).FullyQualifiedName()
	return strings.Replace(name, ":", ".", -1)
}

// Create inserts the job record through the streaming inserter.
func (s *BigQueryJobStore) Create(ctx context.Context, job *model.ClipJob) error {
	inserter := s.Client.Dataset(s.DatasetName).Table(s.JobsTable).Inserter()
	return inserter.Put(ctx, job)
}

// Get retrieves a single job by its unique ID.
func (s *BigQueryJobStore) Get(ctx context.Context, id string) (*model.ClipJob, error) {
	q := s.Client.Query(fmt.Sprintf(QryFindJobById, s.fqn(s.JobsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	job := &model.ClipJob{}
	if err := itr.Next(job); err != nil {
		if err == iterator.Done {
			return nil, fmt.Errorf("job %s not found", id)
		}
		return nil, err
	}
	return job, nil
}

// Claim runs the queued-to-processing compare-and-swap and reports whether
// this caller won it.
func (s *BigQueryJobStore) Claim(ctx context.Context, id string) (bool, error) {
	affected, err := s.runDML(ctx, fmt.Sprintf(QryClaimJob, s.fqn(s.JobsTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "stage", Value: model.StageProbe},
	)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// UpdateProgress records the current stage and percent complete. The write
// also refreshes updated_at, which the reaper uses as the liveness signal.
func (s *BigQueryJobStore) UpdateProgress(ctx context.Context, id string, stage string, progress int) error {
	_, err := s.runDML(ctx, fmt.Sprintf(QryUpdateProgress, s.fqn(s.JobsTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "stage", Value: stage},
		bigquery.QueryParameter{Name: "progress", Value: progress},
	)
	return err
}

// MarkDone finalizes a successful job. The status guard means a job the
// reaper already requeued cannot be double-finalized by a late worker.
func (s *BigQueryJobStore) MarkDone(ctx context.Context, id string, actualUnits int64) error {
	affected, err := s.runDML(ctx, fmt.Sprintf(QryMarkDone, s.fqn(s.JobsTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "units", Value: actualUnits},
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s was not in processing state at completion", id)
	}
	return nil
}

// MarkError moves a job to the terminal error state with a message.
func (s *BigQueryJobStore) MarkError(ctx context.Context, id string, message string) error {
	_, err := s.runDML(ctx, fmt.Sprintf(QryMarkError, s.fqn(s.JobsTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "message", Value: message},
	)
	return err
}

// Requeue returns a stranded job to the queue for another attempt. It errors
// when the job is no longer in the processing state, so concurrent sweeps
// settle each job at most once.
func (s *BigQueryJobStore) Requeue(ctx context.Context, id string) error {
	affected, err := s.runDML(ctx, fmt.Sprintf(QryRequeueJob, s.fqn(s.JobsTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "stage", Value: model.StageProbe},
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s was not in processing state at requeue", id)
	}
	return nil
}

// ListStale returns processing jobs whose last progress update is older than
// the staleness window.
func (s *BigQueryJobStore) ListStale(ctx context.Context, staleAfter time.Duration) ([]*model.ClipJob, error) {
	q := s.Client.Query(fmt.Sprintf(QryListStaleJobs, s.fqn(s.JobsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "minutes", Value: int64(staleAfter.Minutes())},
	}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.ClipJob
	for {
		job := &model.ClipJob{}
		err := itr.Next(job)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

// ReplaceOutputs deletes the job's previous output rows and inserts the new
// set. BigQuery has no cross-statement transaction here; delete-then-insert
// is acceptable because outputs are only read after the job reaches a
// terminal state.
func (s *BigQueryJobStore) ReplaceOutputs(ctx context.Context, jobID string, outputs []*model.ClipOutput) error {
	if _, err := s.runDML(ctx, fmt.Sprintf(QryDeleteOutputs, s.fqn(s.OutputsTable)),
		bigquery.QueryParameter{Name: "job_id", Value: jobID},
	); err != nil {
		return err
	}
	if len(outputs) == 0 {
		return nil
	}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.OutputsTable).Inserter()
	return inserter.Put(ctx, outputs)
}

// Outputs returns the job's outputs in stable variant order.
func (s *BigQueryJobStore) Outputs(ctx context.Context, jobID string) ([]*model.ClipOutput, error) {
	q := s.Client.Query(fmt.Sprintf(QryListOutputs, s.fqn(s.OutputsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "job_id", Value: jobID}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	var out []*model.ClipOutput
	for {
		output := &model.ClipOutput{}
		err := itr.Next(output)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, output)
	}
	return out, nil
}

// Output retrieves a single output record by its ID.
func (s *BigQueryJobStore) Output(ctx context.Context, id string) (*model.ClipOutput, error) {
	q := s.Client.Query(fmt.Sprintf(QryFindOutputById, s.fqn(s.OutputsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	output := &model.ClipOutput{}
	if err := itr.Next(output); err != nil {
		if err == iterator.Done {
			return nil, fmt.Errorf("output %s not found", id)
		}
		return nil, err
	}
	return output, nil
}

// runDML executes a DML statement and returns the number of affected rows,
// which the claim path uses as the winner signal.
func (s *BigQueryJobStore) runDML(ctx context.Context, query string, params ...bigquery.QueryParameter) (int64, error) {
	q := s.Client.Query(query)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return 0, err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, err
	}
	if err := status.Err(); err != nil {
		return 0, err
	}
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}
