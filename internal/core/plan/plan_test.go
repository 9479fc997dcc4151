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

package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// The canonical planning scenario: a 125 second source with five scene cuts,
// a 30 second target, and room for three windows.
func TestWindowsFromScenes(t *testing.T) {
	scenes := []float64{0, 12.4, 40.1, 78.0, 101.2}
	windows := Windows(scenes, 125, 30, 3)

	assert.Len(t, windows, 3)
	assert.Equal(t, model.ClipWindow{Start: 0, End: 30}, windows[0])
	assert.Equal(t, model.ClipWindow{Start: 12.4, End: 42.4}, windows[1])
	assert.Equal(t, model.ClipWindow{Start: 40.1, End: 70.1}, windows[2])
}

func TestWindowsDropShortTails(t *testing.T) {
	// The 101.2 cut leaves 3.8 seconds of source, well under the floor for a
	// 30 second target; it must not produce a window. The 78.0 cut leaves 27
	// seconds, which clears the floor with a shortened window.
	windows := Windows([]float64{78.0, 101.2}, 105, 30, 5)

	assert.Len(t, windows, 2)
	assert.Equal(t, model.ClipWindow{Start: 0, End: 30}, windows[0])
	assert.Equal(t, model.ClipWindow{Start: 78.0, End: 105}, windows[1])
	for _, w := range windows {
		assert.NotEqual(t, 101.2, w.Start)
	}
}

func TestWindowsSynthesizesFallback(t *testing.T) {
	// A source shorter than the acceptance floor still yields one window
	// covering as much of it as possible.
	windows := Windows(nil, 8, 30, 3)

	assert.Len(t, windows, 1)
	assert.Equal(t, model.ClipWindow{Start: 0, End: 8}, windows[0])
}

func TestWindowsRespectsMaxCount(t *testing.T) {
	scenes := []float64{10, 20, 30, 40, 50, 60}
	windows := Windows(scenes, 300, 20, 2)
	assert.Len(t, windows, 2)
}

func TestWindowsDeterministic(t *testing.T) {
	scenes := []float64{40.1, 12.4, 40.1, 78.0} // unsorted with a duplicate
	first := Windows(scenes, 125, 30, 3)
	second := Windows(scenes, 125, 30, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 0.0, first[0].Start)
	assert.Equal(t, 12.4, first[1].Start)
}

func TestWindowsIgnoresOutOfRangeScenes(t *testing.T) {
	windows := Windows([]float64{-5, 200, 12.4}, 125, 30, 5)
	for _, w := range windows {
		assert.GreaterOrEqual(t, w.Start, 0.0)
		assert.LessOrEqual(t, w.End, 125.0)
	}
}

func TestMinWindowSeconds(t *testing.T) {
	assert.Equal(t, 5.0, MinWindowSeconds(4))   // the 5 second floor dominates
	assert.Equal(t, 15.0, MinWindowSeconds(30)) // half the target dominates
}

func TestWindowsInvalidInputs(t *testing.T) {
	assert.Nil(t, Windows(nil, 0, 30, 3))
	assert.Nil(t, Windows(nil, 100, 0, 3))
	// Non-positive max is treated as one.
	assert.Len(t, Windows(nil, 100, 30, 0), 1)
}
