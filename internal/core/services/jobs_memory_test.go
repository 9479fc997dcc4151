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

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

func newQueuedJob(t *testing.T, store *MemoryJobStore, id string) *model.ClipJob {
	t.Helper()
	job := &model.ClipJob{
		ID:      id,
		OwnerID: "owner-1",
		Status:  model.JobQueued,
	}
	assert.NoError(t, store.Create(context.Background(), job))
	return job
}

func TestClaimIsExclusive(t *testing.T) {
	store := NewMemoryJobStore()
	newQueuedJob(t, store, "j1")
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "j1")
	assert.NoError(t, err)
	assert.True(t, claimed)

	// The second claim loses the compare-and-swap.
	claimed, err = store.Claim(ctx, "j1")
	assert.NoError(t, err)
	assert.False(t, claimed)

	job, err := store.Get(ctx, "j1")
	assert.NoError(t, err)
	assert.Equal(t, model.JobProcessing, job.Status)
	assert.Equal(t, model.StageProbe, job.Stage)
}

func TestMarkDoneRequiresProcessing(t *testing.T) {
	store := NewMemoryJobStore()
	newQueuedJob(t, store, "j1")
	ctx := context.Background()

	// Completing a job that was never claimed is a guard violation.
	assert.Error(t, store.MarkDone(ctx, "j1", 2))

	claimed, _ := store.Claim(ctx, "j1")
	assert.True(t, claimed)
	assert.NoError(t, store.MarkDone(ctx, "j1", 2))

	job, _ := store.Get(ctx, "j1")
	assert.Equal(t, model.JobDone, job.Status)
	assert.Equal(t, int64(2), job.ActualDurationUnits)
	assert.Equal(t, 100, job.Progress)

	// Terminal states absorb; a second completion fails the guard.
	assert.Error(t, store.MarkDone(ctx, "j1", 5))
}

func TestMarkErrorAbsorbsInTerminal(t *testing.T) {
	store := NewMemoryJobStore()
	newQueuedJob(t, store, "j1")
	ctx := context.Background()

	_, _ = store.Claim(ctx, "j1")
	assert.NoError(t, store.MarkDone(ctx, "j1", 1))

	// MarkError on a done job is a no-op, not a transition.
	assert.NoError(t, store.MarkError(ctx, "j1", "late failure"))
	job, _ := store.Get(ctx, "j1")
	assert.Equal(t, model.JobDone, job.Status)
	assert.Empty(t, job.Error)
}

func TestRequeueOnlyFromProcessing(t *testing.T) {
	store := NewMemoryJobStore()
	newQueuedJob(t, store, "j1")
	ctx := context.Background()

	assert.Error(t, store.Requeue(ctx, "j1"))

	_, _ = store.Claim(ctx, "j1")
	assert.NoError(t, store.Requeue(ctx, "j1"))

	job, _ := store.Get(ctx, "j1")
	assert.Equal(t, model.JobQueued, job.Status)
	assert.Equal(t, 1, job.Requeues)

	// And it is claimable again.
	claimed, err := store.Claim(ctx, "j1")
	assert.NoError(t, err)
	assert.True(t, claimed)
}

func TestListStale(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	newQueuedJob(t, store, "fresh")
	newQueuedJob(t, store, "old")

	_, _ = store.Claim(ctx, "fresh")
	_, _ = store.Claim(ctx, "old")

	// Age the second job's liveness timestamp directly.
	store.mu.Lock()
	store.jobs["old"].UpdatedAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	stale, err := store.ListStale(ctx, 30*time.Minute)
	assert.NoError(t, err)
	assert.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestReplaceOutputsIsWholesale(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	first := []*model.ClipOutput{
		{ID: "o1", JobID: "j1", Index: 0},
		{ID: "o2", JobID: "j1", Index: 1},
	}
	assert.NoError(t, store.ReplaceOutputs(ctx, "j1", first))

	// A re-render with fewer variants replaces, never appends.
	second := []*model.ClipOutput{{ID: "o3", JobID: "j1", Index: 0}}
	assert.NoError(t, store.ReplaceOutputs(ctx, "j1", second))

	outputs, err := store.Outputs(ctx, "j1")
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)
	assert.Equal(t, "o3", outputs[0].ID)
}

func TestOutputsSortedByIndex(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	assert.NoError(t, store.ReplaceOutputs(ctx, "j1", []*model.ClipOutput{
		{ID: "b", Index: 2},
		{ID: "a", Index: 0},
		{ID: "c", Index: 1},
	}))
	outputs, _ := store.Outputs(ctx, "j1")
	assert.Equal(t, []string{"a", "c", "b"}, []string{outputs[0].ID, outputs[1].ID, outputs[2].ID})
}

func TestOutputLookupById(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	assert.NoError(t, store.ReplaceOutputs(ctx, "j1", []*model.ClipOutput{{ID: "o1", StorageKey: "jobs/j1/clip-0-9x16.mp4"}}))

	out, err := store.Output(ctx, "o1")
	assert.NoError(t, err)
	assert.Equal(t, "jobs/j1/clip-0-9x16.mp4", out.StorageKey)

	_, err = store.Output(ctx, "missing")
	assert.Error(t, err)
}

func TestMemoryUsageLedgerIdempotent(t *testing.T) {
	ledger := NewMemoryUsageLedger()
	ctx := context.Background()

	rec := &UsageRecord{IdempotencyKey: "j1", JobID: "j1", OwnerID: "o", BillableMinutes: 2}
	assert.NoError(t, ledger.Report(ctx, rec))

	// Same key with different minutes: first write wins.
	again := &UsageRecord{IdempotencyKey: "j1", JobID: "j1", OwnerID: "o", BillableMinutes: 99}
	assert.NoError(t, ledger.Report(ctx, again))

	records := ledger.Records()
	assert.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].BillableMinutes)
}

func TestUsageLedgerRejectsEmptyKey(t *testing.T) {
	ledger := NewMemoryUsageLedger()
	assert.Error(t, ledger.Report(context.Background(), &UsageRecord{JobID: "j1"}))
}
