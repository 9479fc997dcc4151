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
	"fmt"
	"math"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// OverlayDefaults fills cosmetic gaps in a plan. Geometry is never repaired;
// promo/CTA/brand text may be.
type OverlayDefaults struct {
	PromoLabel string
	CtaText    string
	BrandTag   string
}

// ValidateAutoPlan checks the highlight-planning collaborator's response
// against the source duration and the [minSec, maxSec] auto-clip policy.
// Numeric geometry must be sound: finite values, 0 <= start < end <=
// duration, and a window length inside the policy band. The hook text must be
// non-empty; any violation is a *model.PlanValidationError. Optional
// promo/CTA/brand fields are the only thing silently filled in, from the
// given defaults.
func ValidateAutoPlan(p *model.ClipPlan, duration, minSec, maxSec float64, defaults OverlayDefaults) error {
	if p == nil {
		return &model.PlanValidationError{Reason: "planner returned no plan"}
	}
	if !isFinite(p.Start) || !isFinite(p.End) {
		return &model.PlanValidationError{Reason: fmt.Sprintf("non-finite window [%v, %v]", p.Start, p.End)}
	}
	if p.Start < 0 || p.End <= p.Start || p.End > duration {
		return &model.PlanValidationError{Reason: fmt.Sprintf("window [%.3f, %.3f] outside source duration %.3f", p.Start, p.End, duration)}
	}
	length := p.End - p.Start
	if length < minSec || length > maxSec {
		return &model.PlanValidationError{Reason: fmt.Sprintf("window length %.3fs outside policy [%.0fs, %.0fs]", length, minSec, maxSec)}
	}
	if p.Hook == "" {
		return &model.PlanValidationError{Reason: "empty hook text"}
	}

	if p.PromoLabel == "" {
		p.PromoLabel = defaults.PromoLabel
	}
	if p.CtaText == "" {
		p.CtaText = defaults.CtaText
	}
	if p.BrandTag == "" {
		p.BrandTag = defaults.BrandTag
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
