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
// Responsibility (COR) pattern's Command interface for the clip pipeline:
// cutting, caption burn-in, overlay drawing, audio composition, aspect
// conversion, and output upload. Each render stage consumes the media file
// path produced by the previous stage through the chain's input/output
// piping, while the per-variant parameters travel in a shared RenderState.
package commands

import (
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// RenderState is the shared, read-mostly state of one variant render. It is
// placed in the chain context under GetRenderStateName() before the chain
// runs; the upload command writes the final ClipOutput back into it.
type RenderState struct {
	JobID       string
	OwnerID     string
	Index       int // Stable output index: windowIndex*len(aspects)+aspectIndex.
	WindowIndex int

	Options model.RenderOptions // The pure render parameters for this variant.
	Namer   *model.TempNamer    // Names the stage intermediates for this variant.
	Plan    *model.ClipPlan     // Marketing copy from the planner, nil for scene-based plans.

	Output *model.ClipOutput // Filled by the upload command on success.
}

// GetRenderStateName returns the context key under which the RenderState is
// stored for the duration of a variant render.
func GetRenderStateName() string {
	return "__RENDER_STATE__"
}

// getRenderState pulls the typed state out of the chain context, or nil.
func getRenderState(v interface{}) *RenderState {
	state, ok := v.(*RenderState)
	if !ok {
		return nil
	}
	return state
}
