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
// audio composition stage. The requested audio mode is first resolved against
// the tracks that actually materialized: a missing voice-over or music track
// degrades the mode down the fallback ladder instead of failing the variant.
// When the resolved mode leaves the original audio untouched the stage is a
// pass-through.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
)

// AudioCompose mixes voice-over and music tracks into the clip according to
// the resolved audio mode.
type AudioCompose struct {
	cor.BaseCommand
	tool media.Tool
}

// NewAudioCompose is the constructor for the audio stage.
func NewAudioCompose(name string, tool media.Tool) *AudioCompose {
	return &AudioCompose{BaseCommand: *cor.NewBaseCommand(name), tool: tool}
}

// Execute resolves the audio mode and runs the mix, or forwards the clip when
// there is no audio work.
func (c *AudioCompose) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	inPath := context.Get(c.GetInputParam()).(string)

	opts := state.Options
	// The mix consumes the current intermediate, not the original source.
	opts.SourcePath = inPath

	resolved := media.ResolveAudioMode(opts.AudioMode, opts.VoicePath != "", opts.MusicPath != "")
	args, ok := media.BuildAudioArgs(opts, resolved)
	if !ok {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(c.GetOutputParam(), inPath)
		return
	}

	outPath := state.Namer.Next("audio", ".mp4")
	if err := c.tool.Transcode(context.GetContext(), args, outPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("audio composition failed in mode %s: %w", resolved, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.AddTempFile(outPath)
	context.Add(c.GetOutputParam(), outPath)
}
