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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements a decorator around the Generative AI client that adds
// rate limiting and a bounded retry to every content generation call. Vertex AI
// enforces per-minute quotas; without the limiter a burst of concurrent clip
// jobs would trip the quota and fail mid-render.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a configured model with a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: Constructor for the wrapped model.
//   - GenerateContent: Rate-limited, retrying generation call.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type retryCountKey struct{}

// QuotaAwareGenerativeAIModel is a decorator that pairs a model name and its
// generation config with a rate limiter, so callers can treat it as a single
// quota-safe handle.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Generation settings (temperature, system instructions, output format).
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               rate.Limiter // Controls request frequency against the Vertex AI quota.
}

// NewQuotaAwareModel creates a QuotaAwareGenerativeAIModel from the base model
// handle and a rate limit in requests per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		// Allows a burst of `requestsPerSecond` events and replenishes the
		// token bucket at 1 token per second.
		RateLimit: *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent executes a generation request under the rate limiter.
// Rate-limited calls wait and re-enter the limiter; failed calls retry up to
// three times with a cool-down between attempts.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if !q.RateLimit.Allow() {
		// Pause this request and re-enter the limiter rather than failing it.
		time.Sleep(time.Second * 5)
		return q.GenerateContent(ctx, content)
	}

	resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		retryCount, ok := ctx.Value(retryCountKey{}).(int)
		if !ok {
			retryCount = 0
		}
		if retryCount >= MaxRetries {
			return nil, errors.New("failed generation on max retries")
		}
		errCtx := context.WithValue(ctx, retryCountKey{}, retryCount+1)
		// Give the service time to recover before the next attempt.
		time.Sleep(time.Second * 30)
		return q.GenerateContent(errCtx, content)
	}
	return resp, nil
}
