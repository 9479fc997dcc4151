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
// aspect conversion stage: scale-and-crop to the target frame shape. It is
// the one stage that always transcodes, so every output is normalized to its
// recipe's dimensions regardless of the source geometry.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
)

// AspectConvert reframes the clip to the variant's target aspect.
type AspectConvert struct {
	cor.BaseCommand
	tool media.Tool
}

// NewAspectConvert is the constructor for the aspect stage.
func NewAspectConvert(name string, tool media.Tool) *AspectConvert {
	return &AspectConvert{BaseCommand: *cor.NewBaseCommand(name), tool: tool}
}

// Execute converts the clip to the target aspect recipe.
func (c *AspectConvert) Execute(context cor.Context) {
	state := getRenderState(context.Get(GetRenderStateName()))
	if state == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("render state missing from context"))
		return
	}
	inPath := context.Get(c.GetInputParam()).(string)

	args, err := media.BuildAspectArgs(inPath, state.Options.Aspect)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	outPath := state.Namer.Next("aspect", ".mp4")
	if err := c.tool.Transcode(context.GetContext(), args, outPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("aspect conversion to %s failed: %w", state.Options.Aspect, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.AddTempFile(outPath)
	context.Add(c.GetOutputParam(), outPath)
}
