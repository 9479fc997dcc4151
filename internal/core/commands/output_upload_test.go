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

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	test "github.com/jaycherian/gcp-go-clip-pilot/internal/testutil"
)

func TestOutputKey(t *testing.T) {
	assert.Equal(t, "jobs/j1/clip-0-9x16.mp4", OutputKey("j1", 0, model.AspectPortrait))
	assert.Equal(t, "jobs/j1/clip-5-1x1.mp4", OutputKey("j1", 5, model.AspectSquare))
	assert.Equal(t, "jobs/abc/clip-2-16x9.mp4", OutputKey("abc", 2, model.AspectLandscape))
}

func renderContext(t *testing.T, state *RenderState, clip string) cor.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(clip), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(GetRenderStateName(), state)
	ctx.Add(cor.CtxIn, path)
	return ctx
}

func TestOutputUploadRecordsClip(t *testing.T) {
	tool := &test.FakeTool{Duration: 28.5}
	store := test.NewMemoryObjectStore("outputs")
	state := &RenderState{
		JobID:       "j1",
		Index:       2,
		WindowIndex: 1,
		Options:     model.RenderOptions{Aspect: model.AspectSquare},
		Plan: &model.ClipPlan{
			Title:    "Big reveal",
			Hook:     "Wait for it",
			Summary:  "The moment everything clicks.",
			Hashtags: []string{"#reveal"},
		},
	}
	ctx := renderContext(t, state, "final clip bytes")

	NewOutputUpload("upload", tool, store).Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.NotNil(t, state.Output)
	out := state.Output
	assert.Equal(t, "j1", out.JobID)
	assert.Equal(t, 2, out.Index)
	assert.Equal(t, 1, out.WindowIndex)
	assert.Equal(t, model.AspectSquare, out.Aspect)
	assert.Equal(t, 28.5, out.DurationSec)
	assert.Equal(t, "jobs/j1/clip-2-1x1.mp4", out.StorageKey)
	assert.Equal(t, int64(len("final clip bytes")), out.ByteSize)
	assert.Equal(t, "Big reveal", out.Title)
	assert.Equal(t, "Wait for it", out.Hook)
	assert.Equal(t, "The moment everything clicks.", out.Caption)

	assert.Equal(t, "final clip bytes", string(store.Objects[out.StorageKey]))
	assert.Equal(t, out.StorageKey, ctx.Get(cor.CtxOut))
}

func TestOutputUploadStableID(t *testing.T) {
	tool := &test.FakeTool{Duration: 10}
	store := test.NewMemoryObjectStore("outputs")
	state := &RenderState{JobID: "j1", Options: model.RenderOptions{Aspect: model.AspectPortrait}}

	NewOutputUpload("upload", tool, store).Execute(renderContext(t, state, "a"))
	first := state.Output.ID
	state.Output = nil
	NewOutputUpload("upload", tool, store).Execute(renderContext(t, state, "b"))

	// Re-rendering the same variant must produce the same record identity.
	assert.Equal(t, first, state.Output.ID)
}

func TestOutputUploadScenePlanHasNoCopy(t *testing.T) {
	tool := &test.FakeTool{Duration: 10}
	store := test.NewMemoryObjectStore("outputs")
	state := &RenderState{JobID: "j1", Options: model.RenderOptions{Aspect: model.AspectPortrait}}

	NewOutputUpload("upload", tool, store).Execute(renderContext(t, state, "clip"))

	assert.NotNil(t, state.Output)
	assert.Equal(t, "", state.Output.Title)
	assert.Equal(t, "", state.Output.Hook)
}

func TestOutputUploadProbeFailureIsFatal(t *testing.T) {
	tool := &test.FakeTool{ProbeErr: fmt.Errorf("moov atom not found")}
	store := test.NewMemoryObjectStore("outputs")
	state := &RenderState{JobID: "j1", Options: model.RenderOptions{Aspect: model.AspectPortrait}}
	ctx := renderContext(t, state, "broken")

	NewOutputUpload("upload", tool, store).Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.Nil(t, state.Output)
	assert.Equal(t, 0, len(store.Objects))
}

func TestOutputUploadMissingState(t *testing.T) {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "/tmp/nope.mp4")

	NewOutputUpload("upload", &test.FakeTool{Duration: 1}, test.NewMemoryObjectStore("outputs")).Execute(ctx)

	assert.True(t, ctx.HasErrors())
}
