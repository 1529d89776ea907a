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

// This file tests the DurationService probes. The PCM probe is pure
// arithmetic over the object size, so it is covered exactly; the container
// probes are covered through their error paths, which need no real media.
package services_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"github.com/stretchr/testify/assert"
)

// TestProbePCMWithExplicitParameters checks the size arithmetic for a known
// sample rate and channel count: 88200 bytes of 16-bit mono at 22050 Hz is
// exactly two seconds.
func TestProbePCMWithExplicitParameters(t *testing.T) {
	store := newFakeBlobStore()
	loc := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")
	store.put(loc, make([]byte, 88200))

	svc := services.NewDurationService(store)
	seconds, err := svc.ProbePCM(context.Background(), loc, 22050, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2.0, seconds)
}

// TestProbePCMDefaults verifies that zero parameters select the synthesis
// pipeline's defaults of 22500 Hz mono 16-bit.
func TestProbePCMDefaults(t *testing.T) {
	store := newFakeBlobStore()
	loc := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")
	store.put(loc, make([]byte, 45000)) // 22500 samples at 2 bytes each.

	svc := services.NewDurationService(store)
	seconds, err := svc.ProbePCM(context.Background(), loc, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, seconds)
}

// TestProbePCMStereo verifies the channel count divides the sample total.
func TestProbePCMStereo(t *testing.T) {
	store := newFakeBlobStore()
	loc := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")
	store.put(loc, make([]byte, 88200))

	svc := services.NewDurationService(store)
	seconds, err := svc.ProbePCM(context.Background(), loc, 22050, 2)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, seconds)
}

// TestProbePCMRejectsNegativeParameters covers the validation guard.
func TestProbePCMRejectsNegativeParameters(t *testing.T) {
	svc := services.NewDurationService(newFakeBlobStore())
	loc := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")

	_, err := svc.ProbePCM(context.Background(), loc, -22050, 1)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	_, err = svc.ProbePCM(context.Background(), loc, 22050, -1)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestProbePCMMissingObject verifies the not-found error passes through from
// the store untouched.
func TestProbePCMMissingObject(t *testing.T) {
	svc := services.NewDurationService(newFakeBlobStore())
	loc := cloud.MustLocator("gs://test-bucket/tts/missing.pcm")

	_, err := svc.ProbePCM(context.Background(), loc, 0, 0)
	assert.True(t, model.IsKind(err, model.ErrNotFound))
}

// TestProbeAudioDispatchesOnExtension verifies the extension routing: raw PCM
// extensions fall through to the arithmetic probe with defaults, and unknown
// extensions are rejected without touching the store.
func TestProbeAudioDispatchesOnExtension(t *testing.T) {
	store := newFakeBlobStore()
	pcm := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")
	raw := cloud.MustLocator("gs://test-bucket/tts/long_2.raw")
	store.put(pcm, make([]byte, 90000))
	store.put(raw, make([]byte, 90000))

	svc := services.NewDurationService(store)

	seconds, err := svc.ProbeAudio(context.Background(), pcm)
	assert.NoError(t, err)
	assert.Equal(t, 2.0, seconds)

	seconds, err = svc.ProbeAudio(context.Background(), raw)
	assert.NoError(t, err)
	assert.Equal(t, 2.0, seconds)

	_, err = svc.ProbeAudio(context.Background(), cloud.MustLocator("gs://test-bucket/tts/file.ogg"))
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestProbeAudioMalformedMP3 verifies a staged object that does not decode as
// its extension claims comes back as invalid input rather than a panic or a
// silent zero.
func TestProbeAudioMalformedMP3(t *testing.T) {
	store := newFakeBlobStore()
	loc := cloud.MustLocator("gs://test-bucket/tts/chirp_1.mp3")
	store.put(loc, []byte("this is not an mp3 stream"))

	svc := services.NewDurationService(store)
	_, err := svc.ProbeAudio(context.Background(), loc)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestProbeMP4RejectsGarbage verifies that an object with no movie header in
// its leading bytes is reported as invalid input.
func TestProbeMP4RejectsGarbage(t *testing.T) {
	store := newFakeBlobStore()
	loc := cloud.MustLocator("gs://test-bucket/veo_scenes/run_1/sample_0.mp4")
	store.put(loc, []byte("definitely not an mp4 container"))

	svc := services.NewDurationService(store)
	_, err := svc.ProbeMP4(context.Background(), loc)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestProbeMP4MissingObject verifies the size lookup's not-found error is
// returned before any download is attempted.
func TestProbeMP4MissingObject(t *testing.T) {
	svc := services.NewDurationService(newFakeBlobStore())
	loc := cloud.MustLocator("gs://test-bucket/veo_scenes/missing.mp4")

	_, err := svc.ProbeMP4(context.Background(), loc)
	assert.True(t, model.IsKind(err, model.ErrNotFound))
}
