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
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

func validPlan() *model.ClipPlan {
	return &model.ClipPlan{Start: 10, End: 35, Hook: "Watch this"}
}

func TestValidateAutoPlanAccepts(t *testing.T) {
	p := validPlan()
	err := ValidateAutoPlan(p, 120, 15, 30, OverlayDefaults{CtaText: "Follow"})
	assert.NoError(t, err)
	// Cosmetic defaults are filled in, geometry untouched.
	assert.Equal(t, "Follow", p.CtaText)
	assert.Equal(t, 10.0, p.Start)
}

func TestValidateAutoPlanKeepsExplicitCopy(t *testing.T) {
	p := validPlan()
	p.CtaText = "Subscribe now"
	assert.NoError(t, ValidateAutoPlan(p, 120, 15, 30, OverlayDefaults{CtaText: "Follow"}))
	assert.Equal(t, "Subscribe now", p.CtaText)
}

func TestValidateAutoPlanRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.ClipPlan)
	}{
		{"nan start", func(p *model.ClipPlan) { p.Start = math.NaN() }},
		{"inf end", func(p *model.ClipPlan) { p.End = math.Inf(1) }},
		{"negative start", func(p *model.ClipPlan) { p.Start = -1 }},
		{"inverted window", func(p *model.ClipPlan) { p.End = p.Start }},
		{"past source end", func(p *model.ClipPlan) { p.End = 500 }},
		{"too short", func(p *model.ClipPlan) { p.End = p.Start + 5 }},
		{"too long", func(p *model.ClipPlan) { p.End = p.Start + 60 }},
		{"missing hook", func(p *model.ClipPlan) { p.Hook = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(p)
			err := ValidateAutoPlan(p, 120, 15, 30, OverlayDefaults{})
			assert.Error(t, err)
			var verr *model.PlanValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestValidateAutoPlanNil(t *testing.T) {
	assert.Error(t, ValidateAutoPlan(nil, 120, 15, 30, OverlayDefaults{}))
}
