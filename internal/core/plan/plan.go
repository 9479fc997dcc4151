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

// Package plan turns scene-change timestamps (or the highlight planner's
// response) into the bounded list of clip windows a job will render.
// Scene-driven planning is deterministic for identical input (stable sort,
// first-N selection), which is what makes re-renders idempotent and the
// planner testable.
package plan

import (
	"math"
	"sort"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// MinWindowSeconds is the acceptance floor for a planned window: at least
// five seconds and at least half the target, whichever is larger. Shorter
// tails are discarded.
func MinWindowSeconds(target float64) float64 {
	return math.Max(5, 0.5*target)
}

// Windows produces up to maxWindows candidate clip windows from scene-change
// timestamps. Every candidate list starts at t=0; each window runs
// min(target, remaining) seconds from its scene cut and is kept only if it
// clears the MinWindowSeconds floor. When no candidate qualifies, a single
// window [0, min(duration, target)] is synthesized so the job always has
// something to render.
func Windows(scenes []float64, duration, target float64, maxWindows int) []model.ClipWindow {
	if maxWindows <= 0 {
		maxWindows = 1
	}
	if target <= 0 || duration <= 0 {
		return nil
	}

	starts := candidateStarts(scenes, duration)
	minLen := MinWindowSeconds(target)

	out := make([]model.ClipWindow, 0, maxWindows)
	for _, s := range starts {
		if len(out) >= maxWindows {
			break
		}
		length := math.Min(target, duration-s)
		if length < minLen {
			continue
		}
		out = append(out, model.ClipWindow{Start: s, End: s + length})
	}

	if len(out) == 0 {
		out = append(out, model.ClipWindow{Start: 0, End: math.Min(duration, target)})
	}
	return out
}

// candidateStarts returns unique, in-range scene timestamps in ascending
// order, always including t=0.
func candidateStarts(scenes []float64, duration float64) []float64 {
	starts := make([]float64, 0, len(scenes)+1)
	starts = append(starts, 0)
	for _, s := range scenes {
		if s > 0 && s < duration && !math.IsNaN(s) && !math.IsInf(s, 0) {
			starts = append(starts, s)
		}
	}
	sort.Stable(sort.Float64Slice(starts))

	uniq := make([]float64, 0, len(starts))
	for _, s := range starts {
		if len(uniq) > 0 && s == uniq[len(uniq)-1] {
			continue
		}
		uniq = append(uniq, s)
	}
	return uniq
}
