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

// Package model defines the persistent and transient data structures of the
// clip pipeline: jobs, rendered outputs, render requests, and the transcript
// representation shared by caption generation and highlight planning.
package model

import (
	"math"
	"time"
)

// JobStatus is the lifecycle state of a ClipJob. Transitions are forward-only:
// queued -> processing -> {done | error}. Both done and error are terminal.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobError      JobStatus = "error"
)

// CanTransition reports whether moving from s to next is a legal forward
// transition of the job state machine.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobQueued:
		return next == JobProcessing
	case JobProcessing:
		return next == JobDone || next == JobError
	default:
		// done and error are terminal.
		return false
	}
}

// Terminal reports whether the status absorbs all further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobError
}

// Stage labels are advisory telemetry for progress reporting. They are never
// used for control decisions.
const (
	StageProbe      = "probe"
	StageTranscribe = "transcribe"
	StagePlan       = "plan"
	StageRender     = "render"
	StageUpload     = "upload"
	StageDone       = "done"
)

// AudioMode selects which audio sources are mixed into a variant's output.
type AudioMode string

const (
	AudioOriginalOnly      AudioMode = "original_only"
	AudioOriginalPlusMusic AudioMode = "original_plus_music"
	AudioVoiceoverOnly     AudioMode = "voiceover_only"
	AudioVoiceoverMusic    AudioMode = "voiceover_plus_music"
)

// Valid reports whether m is one of the four supported modes.
func (m AudioMode) Valid() bool {
	switch m {
	case AudioOriginalOnly, AudioOriginalPlusMusic, AudioVoiceoverOnly, AudioVoiceoverMusic:
		return true
	}
	return false
}

// Aspect is a target output frame shape.
type Aspect string

const (
	AspectPortrait  Aspect = "9:16"
	AspectSquare    Aspect = "1:1"
	AspectLandscape Aspect = "16:9"
)

// Valid reports whether a is a supported aspect target.
func (a Aspect) Valid() bool {
	switch a {
	case AspectPortrait, AspectSquare, AspectLandscape:
		return true
	}
	return false
}

// Overlay holds the branding text drawn on top of a captioned clip. All fields
// are optional; an empty Overlay skips the drawing stage entirely.
type Overlay struct {
	Hook        string `json:"hook,omitempty"`         // Headline text, top center.
	PromoLabel  string `json:"promo_label,omitempty"`  // Badge text, top left.
	CtaText     string `json:"cta_text,omitempty"`     // Call to action, bottom center.
	BrandTag    string `json:"brand_tag,omitempty"`    // Brand tag, bottom right.
	ProgressBar bool   `json:"progress_bar,omitempty"` // Draw an animated progress bar along the bottom edge.
}

// Empty reports whether the overlay has nothing to draw.
func (o Overlay) Empty() bool {
	return o.Hook == "" && o.PromoLabel == "" && o.CtaText == "" && o.BrandTag == "" && !o.ProgressBar
}

// RenderRequest is the caller-supplied portion of a ClipJob: what to cut, how
// many variants, which aspects, and how the audio should be mixed. Required
// and optional inputs are structurally explicit so audio-mode resolution is a
// pure function over this struct rather than a chain of presence checks.
type RenderRequest struct {
	TargetSeconds float64   `json:"target_seconds" bigquery:"target_seconds"`       // Desired clip window length.
	VariantCount  int       `json:"variant_count" bigquery:"variant_count"`         // Maximum number of windows to plan.
	Aspects       []Aspect  `json:"aspects" bigquery:"aspects"`                     // Target aspects, one output per window x aspect.
	AudioMode     AudioMode `json:"audio_mode" bigquery:"audio_mode"`               // Requested audio mode (may degrade, see media.ResolveAudioMode).
	AutoPlan      bool      `json:"auto_plan" bigquery:"auto_plan"`                 // Delegate window selection to the highlight planner.
	MusicKey      string    `json:"music_key,omitempty" bigquery:"music_key"`       // Storage key of the background music track, if any.
	VoiceScript   string    `json:"voice_script,omitempty" bigquery:"voice_script"` // Voice-over script; empty with AutoVoice unset means no voice-over.
	AutoVoice     bool      `json:"auto_voice" bigquery:"auto_voice"`               // Derive the voice-over script from the planner's copy.
	Overlay       Overlay   `json:"overlay" bigquery:"-"`                           // Branding overlay text.
	MusicGainDb   *float64  `json:"music_gain_db,omitempty" bigquery:"-"`           // dB offset applied to the music base gain.
	VoiceGainDb   *float64  `json:"voice_gain_db,omitempty" bigquery:"-"`           // dB offset applied to the voice base gain.
	MusicEQ       string    `json:"music_eq,omitempty" bigquery:"-"`                // ffmpeg filter expression applied to music pre-gain.
	VoiceEQ       string    `json:"voice_eq,omitempty" bigquery:"-"`                // ffmpeg filter expression applied to voice pre-gain.
	PlaybackRate  float64   `json:"playback_rate,omitempty" bigquery:"-"`           // Playback-rate multiplier; 0 or 1 means unchanged.
	EstimateUnits int64     `json:"estimate_units,omitempty" bigquery:"-"`          // Caller's duration estimate in seconds, used when probing fails.
}

// ClipJob is a queued unit of work requesting one or more rendered clip
// variants from a source video.
type ClipJob struct {
	ID        string        `json:"id" bigquery:"id"`                 // Opaque identifier, immutable.
	OwnerID   string        `json:"owner_id" bigquery:"owner_id"`     // Attribution for usage reporting.
	OrgID     string        `json:"org_id" bigquery:"org_id"`         // Billing organization.
	SourceURL string        `json:"source_url" bigquery:"source_url"` // Direct source URL; mutually exclusive with SourceKey.
	SourceKey string        `json:"source_key" bigquery:"source_key"` // Object-storage key of the source; mutually exclusive with SourceURL.
	Request   RenderRequest `json:"request" bigquery:"-"`             // Render parameters.

	Status   JobStatus `json:"status" bigquery:"status"`     // State machine position.
	Stage    string    `json:"stage" bigquery:"stage"`       // Advisory substage label.
	Progress int       `json:"progress" bigquery:"progress"` // 0-100, monotonic within a job.

	EstimateDurationUnits int64 `json:"estimate_duration_units" bigquery:"estimate_duration_units"` // Billing estimate, superseded by actual.
	ActualDurationUnits   int64 `json:"actual_duration_units" bigquery:"actual_duration_units"`     // Set exactly once at successful completion.
	Requeues              int   `json:"requeues" bigquery:"requeues"`                               // Times the reaper returned this job to the queue.

	Error     string    `json:"error,omitempty" bigquery:"error"` // Present only when Status is error.
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bigquery:"updated_at"`
}

// ClipOutput is one rendered artifact belonging to a job. The output set for
// a job is replaced wholesale on any re-render.
type ClipOutput struct {
	ID          string  `json:"id" bigquery:"id"`
	JobID       string  `json:"job_id" bigquery:"job_id"`
	Index       int     `json:"index" bigquery:"idx"`                 // Stable ordering: windowIndex*len(aspects)+aspectIndex, assigned at planning time.
	WindowIndex int     `json:"window_index" bigquery:"window_index"` // Which planned window this output was cut from.
	Aspect      Aspect  `json:"aspect" bigquery:"aspect"`
	DurationSec float64 `json:"duration_sec" bigquery:"duration_sec"`
	StorageKey  string  `json:"storage_key" bigquery:"storage_key"`
	ByteSize    int64   `json:"byte_size" bigquery:"byte_size"`

	// Marketing metadata produced by the planning collaborator, passed
	// through verbatim.
	Title          string   `json:"title,omitempty" bigquery:"title"`
	Hook           string   `json:"hook,omitempty" bigquery:"hook"`
	Hashtags       []string `json:"hashtags,omitempty" bigquery:"hashtags"`
	Caption        string   `json:"caption,omitempty" bigquery:"caption"`
	ThumbnailKey   string   `json:"thumbnail_key,omitempty" bigquery:"thumbnail_key"`
	PublishTargets []string `json:"publish_targets,omitempty" bigquery:"publish_targets"`
}

// ClipWindow is a time range within the source selected for a single clip.
type ClipWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the window length in seconds.
func (w ClipWindow) Duration() float64 {
	return w.End - w.Start
}

// ClipPlan is the highlight-planning collaborator's response: a window plus
// the marketing copy attached to it.
type ClipPlan struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Hook       string   `json:"hook"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	PromoLabel string   `json:"promo_label"`
	CtaText    string   `json:"cta_text"`
	BrandTag   string   `json:"brand_tag"`
	Hashtags   []string `json:"hashtags,omitempty"`
}

// BillableMinutes computes the job's billable duration from its successful
// outputs. Billing is per distinct render window: aspect variants are
// transcodes of the same cut, so each window is billed once at the longest
// duration observed among its outputs. The per-window sum is rounded up to
// whole minutes.
func BillableMinutes(outputs []ClipOutput) int64 {
	perWindow := make(map[int]float64)
	for _, o := range outputs {
		if o.DurationSec > perWindow[o.WindowIndex] {
			perWindow[o.WindowIndex] = o.DurationSec
		}
	}
	var total float64
	for _, d := range perWindow {
		total += d
	}
	if total <= 0 {
		return 0
	}
	return int64(math.Ceil(total / 60.0))
}
