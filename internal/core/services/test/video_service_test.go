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

// This file tests the VideoService: request shaping, poll-until-done
// supervision against a scripted operation, and the failure taxonomy.
package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

// newTestVideoService builds a service over the scripted fake with poll
// timing fast enough for unit tests.
func newTestVideoService(api services.VideoAPI) *services.VideoService {
	return &services.VideoService{
		API:          api,
		Bucket:       "test-bucket",
		Prefix:       "veo_scenes/",
		PollInterval: time.Millisecond,
	}
}

// TestGenerateVideoPollsUntilDone walks an operation through two pending
// polls before completion and verifies the service returns the clip locator
// the operation reported.
func TestGenerateVideoPollsUntilDone(t *testing.T) {
	fake := &fakeVideoAPI{ops: []*genai.GenerateVideosOperation{
		runningVideoOp(),
		runningVideoOp(),
		doneVideoOp("gs://test-bucket/veo_scenes/veo_1/sample_0.mp4"),
	}}
	svc := newTestVideoService(fake)

	out, err := svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "a lantern glowing at dusk",
		DurationSeconds: 6,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, fake.polls)
	assert.Equal(t, "gs://test-bucket/veo_scenes/veo_1/sample_0.mp4", out.String())
}

// TestGenerateVideoSubmitsConfiguredRequest pins the generation config the
// service sends: a single 16:9 clip of the requested length, written under a
// per-request output prefix in the configured bucket.
func TestGenerateVideoSubmitsConfiguredRequest(t *testing.T) {
	fake := &fakeVideoAPI{ops: []*genai.GenerateVideosOperation{
		doneVideoOp("gs://test-bucket/veo_scenes/veo_1/sample_0.mp4"),
	}}
	svc := newTestVideoService(fake)

	_, err := svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "a lantern glowing at dusk",
		DurationSeconds: 6,
		EnhancePrompt:   true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "a lantern glowing at dusk", fake.lastPrompt)
	assert.Nil(t, fake.lastImage)

	config := fake.lastConfig
	assert.Equal(t, int32(1), config.NumberOfVideos)
	assert.Equal(t, int32(6), *config.DurationSeconds)
	assert.Equal(t, "16:9", config.AspectRatio)
	assert.True(t, config.EnhancePrompt)
	assert.True(t, strings.HasPrefix(config.OutputGCSURI, "gs://test-bucket/veo_scenes/veo_"))
}

// TestGenerateVideoPassesReferenceImage verifies image-to-video requests
// carry the reference image and its MIME type through to the model.
func TestGenerateVideoPassesReferenceImage(t *testing.T) {
	fake := &fakeVideoAPI{ops: []*genai.GenerateVideosOperation{
		doneVideoOp("gs://test-bucket/veo_scenes/veo_1/sample_0.mp4"),
	}}
	svc := newTestVideoService(fake)

	image := cloud.MustLocator("gs://test-bucket/agent_image_uploads/hero.png")
	_, err := svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "the product from the photo on a beach",
		DurationSeconds: 5,
		Image:           &image,
		ImageMIMEType:   "image/png",
	})
	assert.NoError(t, err)
	assert.NotNil(t, fake.lastImage)
	assert.Equal(t, image.String(), fake.lastImage.GCSURI)
	assert.Equal(t, "image/png", fake.lastImage.MIMEType)
}

// TestGenerateVideoRejectsEmptyPrompt verifies validation happens before any
// remote call.
func TestGenerateVideoRejectsEmptyPrompt(t *testing.T) {
	fake := &fakeVideoAPI{}
	svc := newTestVideoService(fake)

	_, err := svc.Generate(context.Background(), services.ClipRequest{DurationSeconds: 6})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	assert.Nil(t, fake.lastConfig)
}

// TestGenerateVideoImageRequiresMIMEType verifies a reference image without
// its MIME type is rejected up front.
func TestGenerateVideoImageRequiresMIMEType(t *testing.T) {
	fake := &fakeVideoAPI{}
	svc := newTestVideoService(fake)

	image := cloud.MustLocator("gs://test-bucket/agent_image_uploads/hero.png")
	_, err := svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "the product from the photo",
		DurationSeconds: 5,
		Image:           &image,
	})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	assert.Nil(t, fake.lastConfig)
}

// TestGenerateVideoWithoutClipIsJobFailure verifies that an operation which
// finishes without producing a clip surfaces as a job failure rather than a
// panic or an empty locator.
func TestGenerateVideoWithoutClipIsJobFailure(t *testing.T) {
	cases := map[string]*genai.GenerateVideosOperation{
		"nil response":  doneVideoOp(""),
		"empty videos":  {Name: "operations/fake-veo", Done: true, Response: &genai.GenerateVideosResponse{}},
		"clip sans URI": {Name: "operations/fake-veo", Done: true, Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{}}}}},
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestVideoService(&fakeVideoAPI{ops: []*genai.GenerateVideosOperation{op}})
			_, err := svc.Generate(context.Background(), services.ClipRequest{
				Prompt:          "a lantern glowing at dusk",
				DurationSeconds: 6,
			})
			assert.Error(t, err)
			assert.True(t, model.IsKind(err, model.ErrJobFailed))
		})
	}
}

// TestGenerateVideoSurfacesRemoteFailures verifies both the start call and
// the poll loop map provider errors onto the remote-call kind.
func TestGenerateVideoSurfacesRemoteFailures(t *testing.T) {
	svc := newTestVideoService(&fakeVideoAPI{genErr: errors.New("quota exhausted")})
	_, err := svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "a lantern glowing at dusk",
		DurationSeconds: 6,
	})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrRemoteCall))

	svc = newTestVideoService(&fakeVideoAPI{
		ops:     []*genai.GenerateVideosOperation{runningVideoOp()},
		pollErr: errors.New("operation lookup failed"),
	})
	_, err = svc.Generate(context.Background(), services.ClipRequest{
		Prompt:          "a lantern glowing at dusk",
		DurationSeconds: 6,
	})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrRemoteCall))
}

// TestGenerateVideoHonorsContextCancellation verifies a cancelled context
// stops the poll loop instead of spinning until the operation completes.
func TestGenerateVideoHonorsContextCancellation(t *testing.T) {
	fake := &fakeVideoAPI{ops: []*genai.GenerateVideosOperation{runningVideoOp()}}
	svc := newTestVideoService(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, services.ClipRequest{
		Prompt:          "a lantern glowing at dusk",
		DurationSeconds: 6,
	})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrTimeout))
}
