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

package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
)

type stubProcessor struct {
	ids []string
	err error
}

func (s *stubProcessor) Process(_ context.Context, jobID string) error {
	s.ids = append(s.ids, jobID)
	return s.err
}

func triggerContext(payload interface{}) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, payload)
	return ctx
}

func TestJobTriggerRunsProcessor(t *testing.T) {
	data, err := (&cloud.ClipJobMessage{JobID: "j1", Attempt: 1}).Marshal()
	require.NoError(t, err)
	processor := &stubProcessor{}
	ctx := triggerContext(string(data))

	NewJobTrigger("job-trigger", processor).Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, []string{"j1"}, processor.ids)
	assert.Equal(t, "j1", ctx.Get(cor.CtxOut))
}

// A payload that will never parse must not be redelivered, so the trigger
// records nothing in the chain context.
func TestJobTriggerAcksMalformedPayload(t *testing.T) {
	for _, payload := range []string{"not json", "{}", `{"attempt": 3}`} {
		processor := &stubProcessor{}
		ctx := triggerContext(payload)

		NewJobTrigger("job-trigger", processor).Execute(ctx)

		assert.False(t, ctx.HasErrors(), "payload %q should ack", payload)
		assert.Empty(t, processor.ids, "payload %q should not reach the processor", payload)
	}
}

func TestJobTriggerNacksProcessingFailure(t *testing.T) {
	data, err := (&cloud.ClipJobMessage{JobID: "j1"}).Marshal()
	require.NoError(t, err)
	processor := &stubProcessor{err: errors.New("bigquery unavailable")}
	ctx := triggerContext(string(data))

	NewJobTrigger("job-trigger", processor).Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(cor.CtxOut))
}

func TestJobTriggerRejectsNonStringInput(t *testing.T) {
	ctx := triggerContext(42)

	NewJobTrigger("job-trigger", &stubProcessor{}).Execute(ctx)

	assert.True(t, ctx.HasErrors())
}
