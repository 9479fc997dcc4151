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
// caption burn-in stage: the transcript segments intersecting the variant's
// window are re-based to clip-local time, written as an SRT file, and burned
// into the video with the subtitles filter.
//
// A silent window is not an error. When no usable segments intersect the
// window the stage forwards the clip untouched, so videos without speech
// still render.
package commands

import (
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
)

// CaptionBurn renders windowed transcript segments as burned-in subtitles.
type CaptionBurn struct {
	cor.BaseCommand
	tool media.Tool
}

// NewCaptionBurn is the constructor for the caption stage.
func NewCaptionBurn(name string, tool media.Tool) *CaptionBurn {
	return &CaptionBurn{BaseCommand: *cor.NewBaseCommand(name), tool: tool}
}

// Execute burns captions, or forwards the input when there is nothing to burn.
func (c *CaptionBurn) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	inPath := context.Get(c.GetInputParam()).(string)

	window := state.Options.Window
	segments := state.Options.Transcript.Window(window.Start, window.End)
	srt := media.BuildSRT(segments)
	if srt == "" {
		// Nothing intersects the window; pass the clip through.
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(c.GetOutputParam(), inPath)
		return
	}

	srtPath := state.Namer.Next("captions", ".srt")
	if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to write subtitle file: %w", err))
		return
	}
	context.AddTempFile(srtPath)

	outPath := state.Namer.Next("captioned", ".mp4")
	args := media.BuildSubtitleBurnArgs(inPath, srtPath)
	if err := c.tool.Transcode(context.GetContext(), args, outPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("caption burn failed: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.AddTempFile(outPath)
	context.Add(c.GetOutputParam(), outPath)
}
