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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into coherent pipelines. This file implements the
// per-variant render workflow: the fixed sequence of stages that turns one
// planned window and aspect into an uploaded clip.
package workflow

import (
	"context"
	"fmt"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// ClipRenderWorkflow renders one clip variant through a Chain of
// Responsibility: cut, caption burn, overlay draw, audio composition, aspect
// conversion, upload. Each stage pipes its output file path to the next; the
// chain context tracks every intermediate for cleanup.
type ClipRenderWorkflow struct {
	cor.BaseCommand
	tool        media.Tool
	outputStore services.ObjectStore
	chain       cor.Chain // The underlying chain of commands to be executed.
}

// NewClipRenderWorkflow is the constructor for the render workflow.
func NewClipRenderWorkflow(tool media.Tool, outputStore services.ObjectStore) *ClipRenderWorkflow {
	out := &ClipRenderWorkflow{
		BaseCommand: *cor.NewBaseCommand("clip-render-workflow"),
		tool:        tool,
		outputStore: outputStore,
	}
	out.initializeChain()
	return out
}

// Execute runs the render chain against an externally prepared context.
func (w *ClipRenderWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain builds the stage sequence. Stage order matters: captions
// and overlays are drawn before the audio mix so text survives the video
// stream copy in the mix stage, and aspect conversion runs last so every
// upstream stage works on unscaled frames.
func (w *ClipRenderWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewClipCut("clip-cut", w.tool))
	out.AddCommand(commands.NewCaptionBurn("caption-burn", w.tool))
	out.AddCommand(commands.NewOverlayDraw("overlay-draw", w.tool))
	out.AddCommand(commands.NewAudioCompose("audio-compose", w.tool))
	out.AddCommand(commands.NewAspectConvert("aspect-convert", w.tool))
	out.AddCommand(commands.NewOutputUpload("output-upload", w.tool, w.outputStore))
	w.chain = out
}

// Render executes the chain for one variant and returns its output record.
// Intermediate files are removed on every exit path; the shared source file
// is owned by the job workflow and is not tracked here.
func (w *ClipRenderWorkflow) Render(ctx context.Context, state *commands.RenderState) (*model.ClipOutput, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	defer chainCtx.Close()

	chainCtx.Add(commands.GetRenderStateName(), state)
	chainCtx.Add(cor.CtxIn, state.Options.SourcePath)

	w.chain.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			return nil, &model.RenderError{
				JobID: state.JobID,
				Index: state.Index,
				Err:   fmt.Errorf("%s: %w", name, err),
			}
		}
	}
	if state.Output == nil {
		return nil, &model.RenderError{
			JobID: state.JobID,
			Index: state.Index,
			Err:   fmt.Errorf("chain completed without producing an output"),
		}
	}
	return state.Output, nil
}
