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

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// AspectFilter returns the deterministic scale/crop recipe for a target
// aspect:
//
//	9:16 scale to height 1920 preserving aspect, center-crop 1080x1920
//	1:1  scale to width 1080, center-crop 1080x1080
//	16:9 scale to width 1920, no crop
//
// The -2 scale dimension keeps the derived side even, required by the
// encoder.
func AspectFilter(a model.Aspect) (string, error) {
	switch a {
	case model.AspectPortrait:
		return "scale=-2:1920,crop=1080:1920", nil
	case model.AspectSquare:
		return "scale=1080:-2,crop=1080:1080", nil
	case model.AspectLandscape:
		return "scale=1920:-2", nil
	}
	return "", fmt.Errorf("unsupported aspect %q", a)
}

// BuildAspectArgs produces the argument vector for the aspect conversion
// stage. The audio stream is always copied; aspect conversion never touches
// audio.
func BuildAspectArgs(inPath string, a model.Aspect) ([]string, error) {
	filter, err := AspectFilter(a)
	if err != nil {
		return nil, err
	}
	return []string{
		"-y", "-hide_banner",
		"-i", inPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
	}, nil
}
