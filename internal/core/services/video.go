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

// This file defines the VideoService, which generates scene clips with a
// generative video model. Clips are written by the model directly to a Cloud
// Storage prefix; the service polls the operation to completion and returns
// the locator of the first generated clip. An optional reference image turns
// the request into image-to-video generation.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"google.golang.org/genai"
)

// VideoAPI is the narrow video-generation surface the service depends on.
// The rate-limited model wrapper satisfies it directly.
type VideoAPI interface {
	// GenerateVideos starts a video-generation operation.
	GenerateVideos(ctx context.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)

	// PollVideos refreshes the state of an in-flight operation.
	PollVideos(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

var _ VideoAPI = (*cloud.QuotaAwareVideoModel)(nil)

// VideoService generates scene video clips into Cloud Storage.
type VideoService struct {
	API          VideoAPI      // The video-generation surface.
	Bucket       string        // The artifact bucket.
	Prefix       string        // Object-name prefix for clip output (e.g., "video/").
	PollInterval time.Duration // Delay between operation polls.
}

// NewVideoService wires a VideoService from the shared clients and config.
func NewVideoService(clients *cloud.ServiceClients, config *cloud.Config) *VideoService {
	return &VideoService{
		API:          clients.VideoModel,
		Bucket:       config.Storage.Bucket,
		Prefix:       config.Storage.VideoPrefix,
		PollInterval: clients.VideoModel.PollEvery,
	}
}

// ClipRequest carries the inputs for one scene-clip generation.
type ClipRequest struct {
	Prompt          string         // The visual description of the scene.
	DurationSeconds int32          // Requested clip length.
	Image           *cloud.Locator // Optional reference image for image-to-video.
	ImageMIMEType   string         // MIME type of the reference image, required with Image.
	EnhancePrompt   bool           // Whether the model may rewrite the prompt.
}

// Generate produces a video clip and returns its locator. The model writes
// into a per-request output prefix so concurrent generations never collide.
//
// Inputs:
//   - ctx: The context for the request. Cancellation stops polling.
//   - req: The clip request.
//
// Outputs:
//   - cloud.Locator: The locator of the generated clip.
//   - error: InvalidInput for an empty prompt, JobFailure when the operation
//     completes without a clip, RemoteCallFailure for API errors.
func (v *VideoService) Generate(ctx context.Context, req ClipRequest) (cloud.Locator, error) {
	if req.Prompt == "" {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "video prompt is required")
	}

	outputDir := cloud.Locator{Bucket: v.Bucket, Object: joinObjectPath(v.Prefix, fmt.Sprintf("veo_%s", uuid.New()))}
	config := &genai.GenerateVideosConfig{
		NumberOfVideos:   1,
		DurationSeconds:  genai.Ptr(req.DurationSeconds),
		OutputGCSURI:     outputDir.String(),
		AspectRatio:      "16:9",
		PersonGeneration: "allow_adult",
		EnhancePrompt:    req.EnhancePrompt,
	}

	var image *genai.Image
	if req.Image != nil && !req.Image.IsZero() {
		if req.ImageMIMEType == "" {
			return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "a reference image requires its MIME type")
		}
		image = &genai.Image{GCSURI: req.Image.String(), MIMEType: req.ImageMIMEType}
	}

	op, err := v.API.GenerateVideos(ctx, req.Prompt, image, config)
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "video generation request failed")
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return cloud.Locator{}, model.WrapError(model.ErrTimeout, ctx.Err(), "video generation interrupted")
		case <-time.After(v.PollInterval):
		}
		op, err = v.API.PollVideos(ctx, op)
		if err != nil {
			return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "failed to poll the video operation")
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0].Video == nil || op.Response.GeneratedVideos[0].Video.URI == "" {
		return cloud.Locator{}, model.NewError(model.ErrJobFailed, "video generation finished without producing a clip")
	}
	return cloud.ParseLocator(op.Response.GeneratedVideos[0].Video.URI)
}
