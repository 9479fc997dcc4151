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

// Audio composition: mode resolution, gain math, and the amix filter graph.
//
// The requested audio mode degrades deterministically when its required
// tracks are absent. The cascade order is voiceover_plus_music ->
// voiceover_only -> original_plus_music -> original_only, preserving
// whichever of {voice, music} is actually available. ResolveAudioMode is a
// pure function over (requested, voicePresent, musicPresent) so the cascade
// can be enumerated exhaustively in tests.
package media

import (
	"fmt"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// Relative base gains before any dB offset is applied. The voice track uses a
// different base depending on whether it is mixed against music or stands
// alone.
const (
	MusicBaseGain     = 0.25
	VoiceSoloBaseGain = 1.0
	VoiceDuetBaseGain = 0.15
)

// ResolveAudioMode steps the requested mode down the fallback cascade until
// every track it needs is present.
func ResolveAudioMode(requested model.AudioMode, voicePresent, musicPresent bool) model.AudioMode {
	switch requested {
	case model.AudioVoiceoverMusic:
		switch {
		case voicePresent && musicPresent:
			return model.AudioVoiceoverMusic
		case voicePresent:
			return model.AudioVoiceoverOnly
		case musicPresent:
			return model.AudioOriginalPlusMusic
		default:
			return model.AudioOriginalOnly
		}
	case model.AudioVoiceoverOnly:
		switch {
		case voicePresent:
			return model.AudioVoiceoverOnly
		case musicPresent:
			return model.AudioOriginalPlusMusic
		default:
			return model.AudioOriginalOnly
		}
	case model.AudioOriginalPlusMusic:
		if musicPresent {
			return model.AudioOriginalPlusMusic
		}
		return model.AudioOriginalOnly
	default:
		return model.AudioOriginalOnly
	}
}

// LinearGain converts a relative base gain plus an optional dB offset into
// the linear multiplier handed to the volume filter:
//
//	gain = base * 10^(dB/20)
//
// A nil offset leaves the base unchanged.
func LinearGain(base float64, db *float64) float64 {
	if db == nil {
		return base
	}
	return base * math.Pow(10, *db/20)
}

// BuildAudioArgs produces the ffmpeg argument vector (minus output path) for
// the audio composition stage of one variant. The resolved mode must come
// from ResolveAudioMode; opts supplies track paths, gain offsets, EQ filter
// expressions, and the playback rate.
//
// The returned ok is false when the stage has no work to do (original audio
// untouched at normal rate) and the caller should pass the clip through.
func BuildAudioArgs(opts model.RenderOptions, resolved model.AudioMode) (args []string, ok bool) {
	rate := opts.PlaybackRate
	if rate <= 0 {
		rate = 1
	}

	switch resolved {
	case model.AudioOriginalOnly:
		// Tempo applies only when a rate change is requested and the source
		// actually has an audio stream to retime.
		if rate == 1 || !opts.SourceHasAudio {
			return nil, false
		}
		graph := fmt.Sprintf("[0:v]setpts=PTS/%s[vout];[0:a]atempo=%s[aout]", FormatSeconds(rate), FormatSeconds(rate))
		return []string{
			"-y", "-hide_banner",
			"-i", opts.SourcePath,
			"-filter_complex", graph,
			"-map", "[vout]", "-map", "[aout]",
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "18",
			"-c:a", "aac", "-b:a", "192k",
		}, true

	case model.AudioOriginalPlusMusic:
		musicGain := LinearGain(MusicBaseGain, opts.MusicGainDb)
		musicChain := trackChain("1:a", opts.MusicEQ, musicGain)
		var graph string
		if opts.SourceHasAudio {
			graph = fmt.Sprintf("%s[m];[0:a][m]amix=inputs=2:duration=shortest[aout]", musicChain)
		} else {
			// No original track: music becomes the sole output audio.
			graph = musicChain + "[aout]"
		}
		return mixArgs(opts.SourcePath, []string{opts.MusicPath}, graph), true

	case model.AudioVoiceoverOnly:
		voiceGain := LinearGain(VoiceSoloBaseGain, opts.VoiceGainDb)
		graph := trackChain("1:a", opts.VoiceEQ, voiceGain) + "[aout]"
		return mixArgs(opts.SourcePath, []string{opts.VoicePath}, graph), true

	case model.AudioVoiceoverMusic:
		voiceGain := LinearGain(VoiceDuetBaseGain, opts.VoiceGainDb)
		musicGain := LinearGain(MusicBaseGain, opts.MusicGainDb)
		graph := fmt.Sprintf("%s[v];%s[m];[v][m]amix=inputs=2:duration=shortest[aout]",
			trackChain("1:a", opts.VoiceEQ, voiceGain),
			trackChain("2:a", opts.MusicEQ, musicGain))
		return mixArgs(opts.SourcePath, []string{opts.VoicePath, opts.MusicPath}, graph), true
	}
	return nil, false
}

// trackChain builds the per-track filter chain: optional EQ expression first,
// then the gain.
func trackChain(stream, eq string, gain float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", stream)
	if eq = strings.TrimSpace(eq); eq != "" {
		b.WriteString(eq)
		b.WriteString(",")
	}
	fmt.Fprintf(&b, "volume=%.6f", gain)
	return b.String()
}

func mixArgs(videoPath string, extraInputs []string, graph string) []string {
	args := []string{"-y", "-hide_banner", "-i", videoPath}
	for _, in := range extraInputs {
		args = append(args, "-i", in)
	}
	return append(args,
		"-filter_complex", graph,
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
	)
}
