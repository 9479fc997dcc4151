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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// The full fallback cascade: every requested mode against every combination
// of available tracks.
func TestResolveAudioModeCascade(t *testing.T) {
	cases := []struct {
		requested model.AudioMode
		voice     bool
		music     bool
		want      model.AudioMode
	}{
		{model.AudioVoiceoverMusic, true, true, model.AudioVoiceoverMusic},
		{model.AudioVoiceoverMusic, true, false, model.AudioVoiceoverOnly},
		{model.AudioVoiceoverMusic, false, true, model.AudioOriginalPlusMusic},
		{model.AudioVoiceoverMusic, false, false, model.AudioOriginalOnly},

		{model.AudioVoiceoverOnly, true, true, model.AudioVoiceoverOnly},
		{model.AudioVoiceoverOnly, true, false, model.AudioVoiceoverOnly},
		{model.AudioVoiceoverOnly, false, true, model.AudioOriginalPlusMusic},
		{model.AudioVoiceoverOnly, false, false, model.AudioOriginalOnly},

		{model.AudioOriginalPlusMusic, true, true, model.AudioOriginalPlusMusic},
		{model.AudioOriginalPlusMusic, true, false, model.AudioOriginalOnly},
		{model.AudioOriginalPlusMusic, false, true, model.AudioOriginalPlusMusic},
		{model.AudioOriginalPlusMusic, false, false, model.AudioOriginalOnly},

		{model.AudioOriginalOnly, true, true, model.AudioOriginalOnly},
		{model.AudioOriginalOnly, true, false, model.AudioOriginalOnly},
		{model.AudioOriginalOnly, false, true, model.AudioOriginalOnly},
		{model.AudioOriginalOnly, false, false, model.AudioOriginalOnly},
	}
	for _, tc := range cases {
		got := ResolveAudioMode(tc.requested, tc.voice, tc.music)
		assert.Equal(t, tc.want, got,
			"requested=%s voice=%v music=%v", tc.requested, tc.voice, tc.music)
	}
}

func TestLinearGain(t *testing.T) {
	assert.InDelta(t, 0.25, LinearGain(MusicBaseGain, nil), 1e-9)

	minus3 := -3.0
	// 0.25 * 10^(-3/20)
	assert.InDelta(t, 0.177, LinearGain(MusicBaseGain, &minus3), 0.001)

	plus6 := 6.0
	assert.InDelta(t, 1.0*1.99526, LinearGain(VoiceSoloBaseGain, &plus6), 0.001)

	zero := 0.0
	assert.InDelta(t, 0.15, LinearGain(VoiceDuetBaseGain, &zero), 1e-9)
}

func TestBuildAudioArgsPassThrough(t *testing.T) {
	opts := model.RenderOptions{SourcePath: "in.mp4", SourceHasAudio: true}

	// Original audio at normal rate has nothing to do.
	_, ok := BuildAudioArgs(opts, model.AudioOriginalOnly)
	assert.False(t, ok)

	// A rate change on a silent source is also a pass-through; there is no
	// audio stream to retime and the video retime belongs to this stage only
	// when audio must stay in sync.
	opts.SourceHasAudio = false
	opts.PlaybackRate = 1.5
	_, ok = BuildAudioArgs(opts, model.AudioOriginalOnly)
	assert.False(t, ok)
}

func TestBuildAudioArgsRetime(t *testing.T) {
	opts := model.RenderOptions{SourcePath: "in.mp4", SourceHasAudio: true, PlaybackRate: 1.5}
	args, ok := BuildAudioArgs(opts, model.AudioOriginalOnly)
	assert.True(t, ok)

	graph := argAfter(t, args, "-filter_complex")
	assert.Contains(t, graph, "setpts=PTS/1.500")
	assert.Contains(t, graph, "atempo=1.500")
}

func TestBuildAudioArgsVoiceoverMusic(t *testing.T) {
	opts := model.RenderOptions{
		SourcePath:     "in.mp4",
		SourceHasAudio: true,
		VoicePath:      "voice.wav",
		MusicPath:      "music.m4a",
	}
	args, ok := BuildAudioArgs(opts, model.AudioVoiceoverMusic)
	assert.True(t, ok)

	graph := argAfter(t, args, "-filter_complex")
	// Voice ducks to its duet base gain, music to its base gain.
	assert.Contains(t, graph, "volume=0.150000")
	assert.Contains(t, graph, "volume=0.250000")
	assert.Contains(t, graph, "amix=inputs=2")
	// Voice first, then music, as mix inputs.
	assert.Equal(t, "voice.wav", argAfterN(t, args, "-i", 1))
	assert.Equal(t, "music.m4a", argAfterN(t, args, "-i", 2))
}

func TestBuildAudioArgsMusicOverSilentSource(t *testing.T) {
	opts := model.RenderOptions{
		SourcePath:     "in.mp4",
		SourceHasAudio: false,
		MusicPath:      "music.m4a",
	}
	args, ok := BuildAudioArgs(opts, model.AudioOriginalPlusMusic)
	assert.True(t, ok)

	graph := argAfter(t, args, "-filter_complex")
	// No original track means no amix; the music chain feeds the output
	// directly.
	assert.NotContains(t, graph, "amix")
	assert.True(t, strings.HasSuffix(graph, "[aout]"))
}

func TestBuildAudioArgsEQAppliedBeforeGain(t *testing.T) {
	opts := model.RenderOptions{
		SourcePath:     "in.mp4",
		SourceHasAudio: true,
		MusicPath:      "music.m4a",
		MusicEQ:        "highpass=f=120",
	}
	args, ok := BuildAudioArgs(opts, model.AudioOriginalPlusMusic)
	assert.True(t, ok)

	graph := argAfter(t, args, "-filter_complex")
	eqIdx := strings.Index(graph, "highpass=f=120")
	volIdx := strings.Index(graph, "volume=")
	assert.True(t, eqIdx >= 0 && volIdx > eqIdx, "EQ must precede the gain in %q", graph)
}

// argAfter returns the argument immediately following the first occurrence of
// flag.
func argAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	return argAfterN(t, args, flag, 0)
}

func argAfterN(t *testing.T, args []string, flag string, n int) string {
	t.Helper()
	seen := 0
	for i, a := range args {
		if a == flag {
			if seen == n {
				if i+1 >= len(args) {
					t.Fatalf("flag %s has no value", flag)
				}
				return args[i+1]
			}
			seen++
		}
	}
	t.Fatalf("flag %s occurrence %d not found in %v", flag, n, args)
	return ""
}
