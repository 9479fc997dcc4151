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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

func TestEscapeDrawtext(t *testing.T) {
	assert.Equal(t, `100\% sure\, right\: yes\\no`, EscapeDrawtext(`100% sure, right: yes\no`))
	assert.Equal(t, `it\'s`, EscapeDrawtext("it's"))
	assert.Equal(t, "plain", EscapeDrawtext("plain"))
}

func TestBuildOverlayFilterEmpty(t *testing.T) {
	assert.Equal(t, "", BuildOverlayFilter(model.Overlay{}, 30))
}

func TestBuildOverlayFilterAllElements(t *testing.T) {
	ov := model.Overlay{
		Hook:        "Watch this one weird trick",
		PromoLabel:  "NEW",
		CtaText:     "Follow for more",
		BrandTag:    "@clips",
		ProgressBar: true,
	}
	filter := BuildOverlayFilter(ov, 28.5)

	// One drawtext per text element plus the progress drawbox.
	assert.Equal(t, 4, strings.Count(filter, "drawtext="))
	assert.Contains(t, filter, "drawbox=")
	assert.Contains(t, filter, "iw*t/28.500")
	// The hook wraps at its width budget.
	assert.Contains(t, filter, "Watch this one weird\ntrick")
}

func TestBuildOverlayFilterProgressNeedsDuration(t *testing.T) {
	ov := model.Overlay{ProgressBar: true}
	// Progress alone with no duration draws nothing; Empty() treats a
	// bar-only overlay as drawable but the zero duration drops the drawbox.
	filter := BuildOverlayFilter(ov, 0)
	assert.NotContains(t, filter, "drawbox")
}

func TestBuildOverlayFilterEscapesUserText(t *testing.T) {
	ov := model.Overlay{Hook: "50% off, today: now"}
	filter := BuildOverlayFilter(ov, 10)
	assert.Contains(t, filter, `50\%`)
	assert.Contains(t, filter, `\,`)
	assert.Contains(t, filter, `today\:`)
}
