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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	test "github.com/jaycherian/gcp-go-clip-pilot/internal/testutil"
)

func captionState(dir string, transcript *model.Transcript) *RenderState {
	return &RenderState{
		JobID: "j1",
		Options: model.RenderOptions{
			Window:     model.ClipWindow{Start: 10, End: 40},
			Transcript: transcript,
		},
		Namer: &model.TempNamer{Dir: dir, JobID: "j1"},
	}
}

// An empty transcript forwards the clip untouched, with no re-encode and no
// temp files.
func TestCaptionBurnPassThroughWithoutSpeech(t *testing.T) {
	tool := &test.FakeTool{}
	state := captionState(t.TempDir(), &model.Transcript{})
	ctx := renderContext(t, state, "clip bytes")
	inPath := ctx.Get(cor.CtxIn).(string)

	NewCaptionBurn("captions", tool).Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, inPath, ctx.Get(cor.CtxOut))
	assert.Empty(t, tool.Calls())
	assert.Empty(t, ctx.GetTempFiles())

	data, err := os.ReadFile(ctx.Get(cor.CtxOut).(string))
	require.NoError(t, err)
	assert.Equal(t, "clip bytes", string(data))
}

// Segments outside the window count as no speech too.
func TestCaptionBurnPassThroughOutsideWindow(t *testing.T) {
	tool := &test.FakeTool{}
	transcript := test.SpeechTranscript(model.Segment{Start: 50, End: 55, Text: "later"})
	state := captionState(t.TempDir(), transcript)
	ctx := renderContext(t, state, "clip bytes")

	NewCaptionBurn("captions", tool).Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, ctx.Get(cor.CtxIn), ctx.Get(cor.CtxOut))
	assert.Empty(t, tool.Calls())
}

func TestCaptionBurnBurnsWindowedSegments(t *testing.T) {
	tool := &test.FakeTool{}
	transcript := test.SpeechTranscript(
		model.Segment{Start: 12, End: 15, Text: "hello there"},
		model.Segment{Start: 50, End: 55, Text: "not in window"},
	)
	dir := t.TempDir()
	state := captionState(dir, transcript)
	ctx := renderContext(t, state, "clip bytes")

	NewCaptionBurn("captions", tool).Execute(ctx)

	require.False(t, ctx.HasErrors())
	calls := tool.Calls()
	require.Len(t, calls, 1)
	joined := strings.Join(calls[0], " ")
	assert.Contains(t, joined, "subtitles=")

	// The SRT on disk is re-based to clip-local time.
	var srtPath string
	for _, f := range ctx.GetTempFiles() {
		if strings.HasSuffix(f, ".srt") {
			srtPath = f
		}
	}
	require.NotEmpty(t, srtPath)
	srt, err := os.ReadFile(srtPath)
	require.NoError(t, err)
	assert.Contains(t, string(srt), "00:00:02,000 --> 00:00:05,000")
	assert.Contains(t, string(srt), "hello there")
	assert.NotContains(t, string(srt), "not in window")

	out := ctx.Get(cor.CtxOut).(string)
	assert.NotEqual(t, ctx.Get(cor.CtxIn), out)
	assert.True(t, strings.Contains(out, "captioned"))
}
