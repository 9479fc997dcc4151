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
// first render stage: cutting the planned window out of the source video.
//
// The window is validated against the probed source geometry before ffmpeg
// runs. The end is clamped to the source duration; a window that collapses to
// zero or negative length after clamping fails the variant with an
// InvalidWindowError rather than producing an empty file.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// ClipCut cuts the variant's window out of the source file and re-encodes it
// into a clean intermediate for the following stages.
type ClipCut struct {
	cor.BaseCommand
	tool media.Tool // The ffmpeg/ffprobe wrapper.
}

// NewClipCut is the constructor for the cut command.
func NewClipCut(name string, tool media.Tool) *ClipCut {
	return &ClipCut{BaseCommand: *cor.NewBaseCommand(name), tool: tool}
}

// Execute validates the window and runs the cut.
func (c *ClipCut) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	sourcePath := context.Get(c.GetInputParam()).(string)

	window := state.Options.Window
	if state.Options.SourceDuration > 0 && window.End > state.Options.SourceDuration {
		window.End = state.Options.SourceDuration
	}
	if window.Start < 0 {
		window.Start = 0
	}
	if window.Duration() <= 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.InvalidWindowError{Window: window})
		return
	}
	// Later stages see the clamped geometry.
	state.Options.Window = window

	outPath := state.Namer.Next("cut", ".mp4")
	args := media.BuildCutArgs(sourcePath, window.Start, window.Duration())
	if err := c.tool.Transcode(context.GetContext(), args, outPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("cut failed: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.AddTempFile(outPath)
	context.Add(c.GetOutputParam(), outPath)
}
