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
)

func TestParseSceneTimes(t *testing.T) {
	out := `
[Parsed_showinfo_1 @ 0x1] n:   0 pts:  12345 pts_time:12.4 pos: 100 fmt:yuv420p
[Parsed_showinfo_1 @ 0x1] n:   1 pts:  40100 pts_time:40.1	fmt:yuv420p
garbage line
[Parsed_showinfo_1 @ 0x1] n:   2 pts:      0 pts_time:0.0 pos: 0
`
	times := ParseSceneTimes(out)
	assert.Equal(t, []float64{0, 12.4, 40.1}, times)
}

func TestParseSceneTimesDedupeAndSort(t *testing.T) {
	out := "pts_time:40.1 x\npts_time:12.4 x\npts_time:40.1 x\npts_time:40.1004 x\n"
	times := ParseSceneTimes(out)
	// Duplicates collapse at millisecond resolution; output is ascending.
	assert.Equal(t, []float64{12.4, 40.1}, times)
}

func TestParseSceneTimesRejectsGarbage(t *testing.T) {
	out := "pts_time:NaN x\npts_time:-3.0 x\npts_time:abc x\n"
	assert.Empty(t, ParseSceneTimes(out))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "12.400", FormatSeconds(12.4))
	assert.Equal(t, "0.000", FormatSeconds(0))
	assert.Equal(t, "1.500", FormatSeconds(1.5))
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `C\:\\tmp\\a.srt`, EscapeFilterPath(`C:\tmp\a.srt`))
	assert.Equal(t, "/tmp/a.srt", EscapeFilterPath("/tmp/a.srt"))
}

func TestBuildCutArgsUsesStartPlusDuration(t *testing.T) {
	args := BuildCutArgs("src.mp4", 12.4, 30)
	assert.Equal(t, "12.400", argAfter(t, args, "-ss"))
	assert.Equal(t, "30.000", argAfter(t, args, "-t"))
	assert.Equal(t, "src.mp4", argAfter(t, args, "-i"))
}

func TestBuildSubtitleBurnArgsEscapesPath(t *testing.T) {
	args := BuildSubtitleBurnArgs("in.mp4", "/tmp/with:colon.srt")
	assert.Equal(t, `subtitles=/tmp/with\:colon.srt`, argAfter(t, args, "-vf"))
}
