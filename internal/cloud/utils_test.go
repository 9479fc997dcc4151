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

package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	sentinel := errors.New("always fails")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return sentinel
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 5, 10*time.Second, func() error {
		calls++
		return errors.New("fail")
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// The cancel was observed before the long backoff, not after five calls.
	assert.Equal(t, 1, calls)
}

func TestParseClipJobMessageRoundTrip(t *testing.T) {
	msg := &ClipJobMessage{JobID: "job-123", Attempt: 2}
	raw, err := msg.Marshal()
	assert.NoError(t, err)

	parsed, err := ParseClipJobMessage(raw)
	assert.NoError(t, err)
	assert.Equal(t, msg.JobID, parsed.JobID)
	assert.Equal(t, msg.Attempt, parsed.Attempt)
}

func TestParseClipJobMessageRejectsGarbage(t *testing.T) {
	_, err := ParseClipJobMessage([]byte("not json"))
	assert.Error(t, err)

	// A payload with no job id is malformed even when it is valid JSON.
	_, err = ParseClipJobMessage([]byte("{}"))
	assert.Error(t, err)
}
