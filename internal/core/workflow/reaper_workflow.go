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

package workflow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// ReaperWorkflow is the background sweep that rescues jobs stranded in the
// processing state by a crashed worker. A stranded job is one whose progress
// timestamp has not moved within the staleness window. Jobs under the requeue
// limit go back onto the queue with a fresh delivery; jobs at the limit are
// moved to the terminal error state so they stop consuming attempts.
//
// The sweep runs on a ticker in its own goroutine and is safe to run on every
// worker replica: requeue and error transitions are compare-and-set writes,
// so concurrent sweeps settle each job exactly once.
type ReaperWorkflow struct {
	store       services.JobStore
	publisher   cloud.JobPublisher
	interval    time.Duration
	staleAfter  time.Duration
	maxRequeues int
	closeTicker chan struct{}
}

// NewReaperWorkflow is the constructor for the reaper sweep.
func NewReaperWorkflow(config *cloud.Config, store services.JobStore, publisher cloud.JobPublisher) *ReaperWorkflow {
	return &ReaperWorkflow{
		store:       store,
		publisher:   publisher,
		interval:    time.Duration(config.Reaper.IntervalSeconds) * time.Second,
		staleAfter:  time.Duration(config.Reaper.StaleAfterMinutes) * time.Minute,
		maxRequeues: config.Reaper.MaxRequeues,
		closeTicker: make(chan struct{}),
	}
}

// StartTimer kicks off the background sweep. It creates a time.Ticker that
// fires at the configured interval and runs one sweep per tick inside a trace
// span. The goroutine runs until Stop is called.
func (r *ReaperWorkflow) StartTimer() {
	tracer := otel.Tracer("reaper")
	ticker := time.NewTicker(r.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(context.Background(), "reap-stale-jobs")
				if err := r.Sweep(traceCtx); err != nil {
					span.SetStatus(codes.Error, "sweep failed")
					slog.Error("reaper sweep failed", "error", err)
				} else {
					span.SetStatus(codes.Ok, "sweep complete")
				}
				span.End()
			case <-r.closeTicker:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the background sweep.
func (r *ReaperWorkflow) Stop() {
	close(r.closeTicker)
}

// Sweep settles every currently stale job. Per-job failures are logged and
// skipped so one bad record cannot stall the rest of the sweep; the listing
// error is the only one surfaced.
func (r *ReaperWorkflow) Sweep(ctx context.Context) error {
	stale, err := r.store.ListStale(ctx, r.staleAfter)
	if err != nil {
		return err
	}
	for _, job := range stale {
		if job.Requeues >= r.maxRequeues {
			slog.Warn("stranding job at requeue limit", "job_id", job.ID, "requeues", job.Requeues)
			if err := r.store.MarkError(ctx, job.ID, "stranded: exceeded requeue limit"); err != nil {
				slog.Error("failed to strand job", "job_id", job.ID, "error", err)
			}
			continue
		}
		if err := r.store.Requeue(ctx, job.ID); err != nil {
			// Lost the compare-and-set race to another sweep or a live
			// worker's progress write. Leave it for the next tick.
			slog.Info("requeue skipped", "job_id", job.ID, "error", err)
			continue
		}
		if err := r.publisher.PublishJob(ctx, &cloud.ClipJobMessage{JobID: job.ID, Attempt: job.Requeues + 1}); err != nil {
			// The job sits queued with no message; the next sweep will not
			// see it (it is no longer processing), so log loudly.
			slog.Error("requeued job but publish failed", "job_id", job.ID, "error", err)
			continue
		}
		slog.Info("requeued stale job", "job_id", job.ID, "attempt", job.Requeues+1)
	}
	return nil
}
