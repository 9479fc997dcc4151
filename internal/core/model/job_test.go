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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobQueued.CanTransition(JobProcessing))
	assert.True(t, JobProcessing.CanTransition(JobDone))
	assert.True(t, JobProcessing.CanTransition(JobError))

	// No skipping, no reversing, no leaving a terminal.
	assert.False(t, JobQueued.CanTransition(JobDone))
	assert.False(t, JobQueued.CanTransition(JobError))
	assert.False(t, JobProcessing.CanTransition(JobQueued))
	assert.False(t, JobDone.CanTransition(JobProcessing))
	assert.False(t, JobDone.CanTransition(JobError))
	assert.False(t, JobError.CanTransition(JobDone))
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobDone.Terminal())
	assert.True(t, JobError.Terminal())
}

func TestAudioModeValid(t *testing.T) {
	assert.True(t, AudioOriginalOnly.Valid())
	assert.True(t, AudioVoiceoverMusic.Valid())
	assert.False(t, AudioMode("spatial").Valid())
}

func TestBillableMinutesPerWindowMax(t *testing.T) {
	// Three aspect variants of the same 28.5s window bill as one window at
	// the longest observed duration, not three times.
	outputs := []ClipOutput{
		{WindowIndex: 0, DurationSec: 28.5},
		{WindowIndex: 0, DurationSec: 28.4},
		{WindowIndex: 0, DurationSec: 28.5},
	}
	assert.Equal(t, int64(1), BillableMinutes(outputs))
}

func TestBillableMinutesSumsWindowsAndCeils(t *testing.T) {
	outputs := []ClipOutput{
		{WindowIndex: 0, DurationSec: 30},
		{WindowIndex: 0, DurationSec: 29.9}, // shorter variant of window 0
		{WindowIndex: 1, DurationSec: 40},
	}
	// 30 + 40 = 70 seconds, ceil to 2 minutes.
	assert.Equal(t, int64(2), BillableMinutes(outputs))
}

func TestBillableMinutesEmpty(t *testing.T) {
	assert.Equal(t, int64(0), BillableMinutes(nil))
	assert.Equal(t, int64(0), BillableMinutes([]ClipOutput{{WindowIndex: 0, DurationSec: 0}}))
}
