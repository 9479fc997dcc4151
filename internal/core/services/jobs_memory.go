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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// MemoryJobStore is an in-process JobStore used by tests and local
// development. It mirrors the BigQuery store's claim and guard semantics,
// including the compare-and-swap on status.
type MemoryJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*model.ClipJob
	outputs map[string][]*model.ClipOutput
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:    make(map[string]*model.ClipJob),
		outputs: make(map[string][]*model.ClipOutput),
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job *model.ClipJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.ClipJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryJobStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, fmt.Errorf("job %s not found", id)
	}
	if job.Status != model.JobQueued {
		return false, nil
	}
	job.Status = model.JobProcessing
	job.Stage = model.StageProbe
	job.Progress = 0
	job.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryJobStore) UpdateProgress(_ context.Context, id string, stage string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status != model.JobProcessing {
		return nil
	}
	job.Stage = stage
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryJobStore) MarkDone(_ context.Context, id string, actualUnits int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status != model.JobProcessing {
		return fmt.Errorf("job %s was not in processing state at completion", id)
	}
	job.Status = model.JobDone
	job.Stage = model.StageDone
	job.Progress = 100
	job.ActualDurationUnits = actualUnits
	job.Error = ""
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryJobStore) MarkError(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = model.JobError
	job.Error = message
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryJobStore) Requeue(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if job.Status != model.JobProcessing {
		return fmt.Errorf("job %s was not in processing state at requeue", id)
	}
	job.Status = model.JobQueued
	job.Stage = model.StageProbe
	job.Requeues++
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryJobStore) ListStale(_ context.Context, staleAfter time.Duration) ([]*model.ClipJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)
	var out []*model.ClipJob
	for _, job := range s.jobs {
		if job.Status == model.JobProcessing && job.UpdatedAt.Before(cutoff) {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryJobStore) ReplaceOutputs(_ context.Context, jobID string, outputs []*model.ClipOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]*model.ClipOutput, 0, len(outputs))
	for _, o := range outputs {
		oc := *o
		cp = append(cp, &oc)
	}
	s.outputs[jobID] = cp
	return nil
}

func (s *MemoryJobStore) Outputs(_ context.Context, jobID string) ([]*model.ClipOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.outputs[jobID]
	out := make([]*model.ClipOutput, 0, len(stored))
	for _, o := range stored {
		oc := *o
		out = append(out, &oc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *MemoryJobStore) Output(_ context.Context, id string) (*model.ClipOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.outputs {
		for _, o := range stored {
			if o.ID == id {
				oc := *o
				return &oc, nil
			}
		}
	}
	return nil, fmt.Errorf("output %s not found", id)
}
