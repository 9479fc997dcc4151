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
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// BuildSRT renders window-local transcript segments as a standard numbered
// subtitle track:
//
//	index
//	HH:MM:SS,mmm --> HH:MM:SS,mmm
//	text
//
// Segments whose text is empty after trimming are skipped. Callers pass
// segments already re-based to the clip's local zero (model.Transcript.Window);
// an empty result string means there is nothing to burn and the clip should
// pass through unmodified.
func BuildSRT(segments []model.Segment) string {
	var b strings.Builder
	index := 1
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, srtTimestamp(s.Start), srtTimestamp(s.End), text)
		index++
	}
	return b.String()
}

func srtTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(sec*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
