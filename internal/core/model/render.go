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

package model

// RenderOptions is the pure input to the render engine for one variant: the
// source, the window to cut, and how to dress it. It carries no job or
// billing concerns and is consumed once per render call.
type RenderOptions struct {
	SourcePath     string     // Local path of the downloaded source video.
	SourceDuration float64    // Probed (or estimated) source duration in seconds.
	SourceHasAudio bool       // Whether the source carries an audio stream.
	Window         ClipWindow // The time range to cut.
	Aspect         Aspect     // Target frame shape.

	Transcript *Transcript // Full-source transcript; windowed at burn time.
	Overlay    Overlay     // Branding overlay text fields.

	AudioMode    AudioMode // Requested mode; resolution against available tracks happens in the composer.
	MusicPath    string    // Local path of the music track, empty when absent.
	VoicePath    string    // Local path of the synthesized voice-over, empty when absent.
	MusicGainDb  *float64  // Optional dB offset for music.
	VoiceGainDb  *float64  // Optional dB offset for voice.
	MusicEQ      string    // Optional pre-gain filter expression for music.
	VoiceEQ      string    // Optional pre-gain filter expression for voice.
	PlaybackRate float64   // Playback-rate multiplier; 0 or 1 means unchanged.
}
