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
// final render stage: probing the finished clip for its billable duration,
// uploading it to the output bucket under a deterministic key, and recording
// the ClipOutput on the render state.
//
// The final probe is deliberately fatal. Billing is computed from measured
// output durations, so a clip whose duration cannot be read is a failed
// variant, not a zero-cost one.
package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// OutputUpload publishes the finished clip and assembles its ClipOutput
// record.
type OutputUpload struct {
	cor.BaseCommand
	tool  media.Tool
	store services.ObjectStore // The output bucket.
}

// NewOutputUpload is the constructor for the upload stage.
func NewOutputUpload(name string, tool media.Tool, store services.ObjectStore) *OutputUpload {
	return &OutputUpload{BaseCommand: *cor.NewBaseCommand(name), tool: tool, store: store}
}

// OutputKey returns the deterministic storage key for a variant. Re-rendering
// a job overwrites the same objects, which is what makes replacement
// idempotent at the bucket level.
func OutputKey(jobID string, index int, aspect model.Aspect) string {
	slug := strings.ReplaceAll(string(aspect), ":", "x")
	return fmt.Sprintf("jobs/%s/clip-%d-%s.mp4", jobID, index, slug)
}

// Execute probes, uploads, and records the finished clip.
func (c *OutputUpload) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	inPath := context.Get(c.GetInputParam()).(string)

	duration, err := c.tool.ProbeDuration(context.GetContext(), inPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("final probe failed, refusing unbillable output: %w", err))
		return
	}

	key := OutputKey(state.JobID, state.Index, state.Options.Aspect)
	size, err := c.store.Put(context.GetContext(), key, inPath, "video/mp4")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("output upload failed: %w", err))
		return
	}

	output := &model.ClipOutput{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
		JobID:       state.JobID,
		Index:       state.Index,
		WindowIndex: state.WindowIndex,
		Aspect:      state.Options.Aspect,
		DurationSec: duration,
		StorageKey:  key,
		ByteSize:    size,
	}
	if state.Plan != nil {
		output.Title = state.Plan.Title
		output.Hook = state.Plan.Hook
		output.Caption = state.Plan.Summary
		output.Hashtags = state.Plan.Hashtags
	}
	state.Output = output

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), key)
}
