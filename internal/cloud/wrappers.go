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

// Package cloud provides components for interacting with Google Cloud
// services. This file implements decorators around the Generative AI client
// that add rate limiting and retries without altering the wrapped client.
// Vertex AI enforces per-minute quotas on both text and video generation, so
// every model call in the repository goes through one of these wrappers.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Rate-limited text-generation model.
//   - QuotaAwareVideoModel: Rate-limited video-generation model.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// retryKey is the context key tracking the attempt count across recursive
// retry calls.
type retryKey struct{}

// QuotaAwareGenerativeAIModel wraps a configured generative model with a rate
// limiter. Calls that exceed the limit are queued; failed calls are retried a
// bounded number of times.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation settings applied to every call.
	ModelName               string                       // The Vertex AI model identifier.
	ModelHandle             *genai.Models                // The underlying models client.
	RateLimit               *rate.Limiter                // Controls request frequency.
}

// NewQuotaAwareModel creates a QuotaAwareGenerativeAIModel around the given
// generation config and model handle, allowing at most requestsPerSecond
// calls per second.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent executes the model call under the rate limit. When the
// limiter rejects the call, it waits and re-queues; when the provider fails,
// it retries up to three times before surfacing the error.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if q.RateLimit.Allow() {
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err != nil {
			retryCount, ok := ctx.Value(retryKey{}).(int)
			if !ok {
				retryCount = 0
			}
			if retryCount > 3 {
				return nil, errors.New("failed generation on max retries")
			}
			errCtx := context.WithValue(ctx, retryKey{}, retryCount+1)
			time.Sleep(time.Second)
			return q.GenerateContent(errCtx, content)
		}
		return resp, nil
	}
	// Rate limited: back off briefly and re-queue.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	time.Sleep(time.Second)
	return q.GenerateContent(ctx, content)
}

// QuotaAwareVideoModel wraps the video-generation surface of the GenAI client
// with the same limiter discipline. Video generation quotas are far lower
// than text quotas, so the limiter here is typically 1 rps or less.
type QuotaAwareVideoModel struct {
	ModelName  string            // The Veo model identifier.
	Models     *genai.Models     // The underlying models client, used to start operations.
	Operations *genai.Operations // The operations client, used to poll them.
	RateLimit  *rate.Limiter     // Controls how often new operations may start.
	PollEvery  time.Duration     // Interval between operation polls.
}

// NewQuotaAwareVideoModel creates a rate-limited video model wrapper.
func NewQuotaAwareVideoModel(name string, models *genai.Models, operations *genai.Operations, requestsPerSecond int) *QuotaAwareVideoModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &QuotaAwareVideoModel{
		ModelName:  name,
		Models:     models,
		Operations: operations,
		RateLimit:  rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
		PollEvery:  5 * time.Second,
	}
}

// GenerateVideos starts a video-generation operation once the rate limiter
// admits the request.
func (q *QuotaAwareVideoModel) GenerateVideos(ctx context.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.Models.GenerateVideos(ctx, q.ModelName, prompt, image, config)
}

// PollVideos refreshes the state of an in-flight video-generation operation.
func (q *QuotaAwareVideoModel) PollVideos(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return q.Operations.GetVideosOperation(ctx, op, nil)
}
