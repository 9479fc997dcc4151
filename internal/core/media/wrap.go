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

import "strings"

// MeasureRunes is the default text measure: one unit per rune. Overlay fonts
// here are close enough to fixed-width at title sizes that rune count is the
// measured width.
func MeasureRunes(s string) float64 {
	return float64(len([]rune(s)))
}

// WrapText greedily packs words into lines whose measured width stays at or
// below maxWidth. A single word wider than the budget gets its own line
// rather than being split. The same greedy-by-measured-width algorithm backs
// every on-video multi-line text layout.
func WrapText(text string, maxWidth float64, measure func(string) float64) []string {
	if measure == nil {
		measure = MeasureRunes
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		candidate := cur + " " + w
		if measure(candidate) > maxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = candidate
	}
	return append(lines, cur)
}
