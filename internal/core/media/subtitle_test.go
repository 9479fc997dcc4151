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

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

func TestBuildSRT(t *testing.T) {
	segments := []model.Segment{
		{Start: 0, End: 2.5, Text: "Hello there"},
		{Start: 2.5, End: 61.125, Text: "and welcome back"},
	}
	srt := BuildSRT(segments)

	assert.Equal(t,
		"1\n00:00:00,000 --> 00:00:02,500\nHello there\n\n"+
			"2\n00:00:02,500 --> 00:01:01,125\nand welcome back\n\n",
		srt)
}

func TestBuildSRTSkipsEmptySegments(t *testing.T) {
	segments := []model.Segment{
		{Start: 0, End: 1, Text: "   "},
		{Start: 1, End: 2, Text: "kept"},
	}
	srt := BuildSRT(segments)
	// Numbering stays contiguous after the skip.
	assert.Contains(t, srt, "1\n00:00:01,000")
	assert.NotContains(t, srt, "2\n")
}

func TestBuildSRTEmpty(t *testing.T) {
	assert.Equal(t, "", BuildSRT(nil))
	assert.Equal(t, "", BuildSRT([]model.Segment{{Start: 0, End: 1, Text: " "}}))
}

// Windowed segments arrive re-based from the transcript; the two stages
// together produce clip-local timestamps.
func TestBuildSRTWithWindowedTranscript(t *testing.T) {
	tr := &model.Transcript{Segments: []model.Segment{
		{Start: 10, End: 14, Text: "before the window"},
		{Start: 18, End: 22, Text: "straddles the start"},
		{Start: 25, End: 28, Text: "inside"},
		{Start: 48, End: 55, Text: "straddles the end"},
	}}
	segments := tr.Window(20, 50)
	srt := BuildSRT(segments)

	// 18-22 clamps to [20,22] and re-bases to [0,2].
	assert.Contains(t, srt, "00:00:00,000 --> 00:00:02,000")
	// 25-28 re-bases to [5,8].
	assert.Contains(t, srt, "00:00:05,000 --> 00:00:08,000")
	// 48-55 clamps to [48,50] and re-bases to [28,30].
	assert.Contains(t, srt, "00:00:28,000 --> 00:00:30,000")
	assert.NotContains(t, srt, "before the window")
}
