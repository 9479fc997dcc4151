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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// trigger command attached to the render-topic listener: it parses the
// queued-job message and hands the job ID to the processor.
//
// The trigger records an error in the chain context only for failures that a
// redelivery could fix. A job that is simply not claimable (duplicate
// delivery, already terminal) acknowledges cleanly.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
)

// JobProcessor is implemented by the clip job workflow. The trigger depends
// on this one-method interface so tests can drive it with a fake.
type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

// JobTrigger parses queued-job messages and starts processing.
type JobTrigger struct {
	cor.BaseCommand
	processor JobProcessor
}

// NewJobTrigger is the constructor for the trigger command.
func NewJobTrigger(name string, processor JobProcessor) *JobTrigger {
	return &JobTrigger{BaseCommand: *cor.NewBaseCommand(name), processor: processor}
}

// Execute parses the message and runs the job to completion.
func (c *JobTrigger) Execute(context cor.Context) {
	raw, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("trigger input is not a message payload"))
		return
	}

	msg, err := cloud.ParseClipJobMessage([]byte(raw))
	if err != nil {
		// A malformed payload will never parse on redelivery; surface it in
		// logs but acknowledge the message.
		slog.Error("dropping malformed job message", "error", err, "payload", raw)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	if err := c.processor.Process(context.GetContext(), msg.JobID); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("job %s processing failed: %w", msg.JobID, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), msg.JobID)
}
