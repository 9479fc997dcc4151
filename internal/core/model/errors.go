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

import "fmt"

// ProbeError reports that the external prober failed or produced output that
// is not a finite positive duration. Callers fall back to an estimate except
// at billing finalization, where duration is mandatory.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// PlanValidationError reports that the highlight-planning collaborator
// returned geometry or copy the pipeline refuses to repair: non-finite or
// inverted start/end, out-of-range bounds, or empty hook text.
type PlanValidationError struct {
	Reason string
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("invalid clip plan: %s", e.Reason)
}

// InvalidWindowError reports a clip window whose duration is zero or negative
// after clamping. Windows are never silently extended to a minimum.
type InvalidWindowError struct {
	Window ClipWindow
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid clip window [%.3f, %.3f]: non-positive duration", e.Window.Start, e.Window.End)
}

// RenderError reports the failure of a single variant's render, carrying the
// variant index so partial-failure accounting stays per variant.
type RenderError struct {
	JobID string
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render job %s variant %d: %v", e.JobID, e.Index, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
