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

import "strings"

// Segment is one time-aligned transcript span. The transcription collaborator
// guarantees start < end, ordering by start and no overlaps; the pipeline only
// performs windowed filtering on top of that.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the in-memory, time-ordered transcript of a source video.
// An empty transcript is valid: silent videos and failed transcriptions
// degrade caption burn-in to a pass-through, they do not fail the job.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Empty reports whether the transcript holds no usable text.
func (t *Transcript) Empty() bool {
	if t == nil {
		return true
	}
	for _, s := range t.Segments {
		if strings.TrimSpace(s.Text) != "" {
			return false
		}
	}
	return true
}

// Window returns the segments intersecting [start, end), clamped to the
// window's bounds and re-based so the window start becomes time zero. The
// same slices feed both subtitle generation and highlight-planning context.
func (t *Transcript) Window(start, end float64) []Segment {
	if t == nil || end <= start {
		return nil
	}
	var out []Segment
	for _, s := range t.Segments {
		if s.End <= start || s.Start >= end {
			continue
		}
		ss := s.Start
		se := s.End
		if ss < start {
			ss = start
		}
		if se > end {
			se = end
		}
		out = append(out, Segment{Start: ss - start, End: se - start, Text: s.Text})
	}
	return out
}

// Text joins all non-empty segment text in order, used as planning context.
func (t *Transcript) Text() string {
	if t == nil {
		return ""
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}
