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

// hookWrapWidth is the measured-width budget for the headline before it wraps
// onto additional lines.
const hookWrapWidth = 22

// EscapeDrawtext escapes user-controlled text for embedding inside a
// drawtext filter's quoted text parameter. Backslash, quote, colon, comma
// and percent are structural to the filter-graph syntax.
func EscapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}

// BuildOverlayFilter assembles the branding overlay filter chain: hook text
// top center (wrapped), promo badge top left, CTA bottom center, brand tag
// bottom right, and an optional progress bar along the bottom edge. Returns
// an empty string when the overlay has nothing to draw.
func BuildOverlayFilter(ov model.Overlay, durationSec float64) string {
	if ov.Empty() {
		return ""
	}
	var parts []string

	if ov.Hook != "" {
		wrapped := strings.Join(WrapText(ov.Hook, hookWrapWidth, MeasureRunes), "\n")
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontsize=h*0.045:fontcolor=white:borderw=4:bordercolor=black:line_spacing=8:x=(w-text_w)/2:y=h*0.08",
			EscapeDrawtext(wrapped)))
	}
	if ov.PromoLabel != "" {
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontsize=h*0.025:fontcolor=white:box=1:boxcolor=black@0.6:boxborderw=12:x=48:y=48",
			EscapeDrawtext(ov.PromoLabel)))
	}
	if ov.CtaText != "" {
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontsize=h*0.03:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h-text_h-h*0.08",
			EscapeDrawtext(ov.CtaText)))
	}
	if ov.BrandTag != "" {
		parts = append(parts, fmt.Sprintf(
			"drawtext=text='%s':fontsize=h*0.022:fontcolor=white@0.85:x=w-text_w-48:y=h-text_h-48",
			EscapeDrawtext(ov.BrandTag)))
	}
	if ov.ProgressBar && durationSec > 0 {
		parts = append(parts, fmt.Sprintf(
			"drawbox=x=0:y=ih-14:w=iw*t/%s:h=14:color=white@0.85:t=fill",
			FormatSeconds(durationSec)))
	}
	return strings.Join(parts, ",")
}

// BuildOverlayArgs wraps the overlay filter into a full argument vector.
// Audio is copied untouched at this stage.
func BuildOverlayArgs(inPath, filter string) []string {
	return []string{
		"-y", "-hide_banner",
		"-i", inPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
	}
}
