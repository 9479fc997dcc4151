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
// branding overlay stage: hook text, promo badge, call to action, brand tag,
// and the animated progress bar, all drawn in a single drawtext/drawbox
// filter pass. An empty overlay skips the stage entirely.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
)

// OverlayDraw draws the branding overlay on top of the captioned clip.
type OverlayDraw struct {
	cor.BaseCommand
	tool media.Tool
}

// NewOverlayDraw is the constructor for the overlay stage.
func NewOverlayDraw(name string, tool media.Tool) *OverlayDraw {
	return &OverlayDraw{BaseCommand: *cor.NewBaseCommand(name), tool: tool}
}

// Execute draws the overlay, or forwards the input when it is empty.
func (c *OverlayDraw) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	inPath := context.Get(c.GetInputParam()).(string)

	if state.Options.Overlay.Empty() {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(c.GetOutputParam(), inPath)
		return
	}

	// The progress bar is parameterized on the clip's own timeline, so the
	// pre-retime window duration is the correct divisor.
	filter := media.BuildOverlayFilter(state.Options.Overlay, state.Options.Window.Duration())
	outPath := state.Namer.Next("overlay", ".mp4")
	args := media.BuildOverlayArgs(inPath, filter)
	if err := c.tool.Transcode(context.GetContext(), args, outPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("overlay draw failed: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.AddTempFile(outPath)
	context.Add(c.GetOutputParam(), outPath)
}
