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

// Package cloud_test contains unit tests for the cloud package. This file
// tests the Locator type: URI parsing, formatting, and the public HTTPS
// projection.
package cloud_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestParseLocatorRoundTrip verifies that parsing a well-formed GCS URI and
// formatting the result yields the original string back, including nested
// object paths.
func TestParseLocatorRoundTrip(t *testing.T) {
	uris := []string{
		"gs://my-bucket/file.mp4",
		"gs://my-bucket/muxed/mux_abc/sd.mp4",
		"gs://b/deeply/nested/object/name.pcm",
	}
	for _, uri := range uris {
		loc, err := cloud.ParseLocator(uri)
		assert.NoError(t, err)
		assert.Equal(t, uri, loc.String())
	}
}

// TestParseLocatorFields checks that the bucket and object parts are split at
// the first separator only.
func TestParseLocatorFields(t *testing.T) {
	loc, err := cloud.ParseLocator("gs://commercials/tts/chirp_1.mp3")
	assert.NoError(t, err)
	assert.Equal(t, "commercials", loc.Bucket)
	assert.Equal(t, "tts/chirp_1.mp3", loc.Object)
}

// TestParseLocatorRejectsMalformedURIs enumerates the malformed shapes the
// parser must reject, each with a typed invalid-input error.
func TestParseLocatorRejectsMalformedURIs(t *testing.T) {
	bad := []string{
		"",
		"not-a-uri",
		"http://bucket/object",
		"gs://bucket",
		"gs://bucket/",
		"gs:///object",
	}
	for _, uri := range bad {
		_, err := cloud.ParseLocator(uri)
		assert.Error(t, err, "expected %q to be rejected", uri)
		assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	}
}

// TestPublicURL verifies the fixed-host HTTPS projection and that incomplete
// locators are rejected.
func TestPublicURL(t *testing.T) {
	loc := cloud.Locator{Bucket: "my-bucket", Object: "commercials/final_1/sd.mp4"}
	url, err := loc.PublicURL()
	assert.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/my-bucket/commercials/final_1/sd.mp4", url)

	_, err = cloud.Locator{Bucket: "my-bucket"}.PublicURL()
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	_, err = cloud.Locator{Object: "orphan.mp4"}.PublicURL()
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestChildCollapsesSeparators verifies that nesting an object name under a
// locator never produces duplicate slashes, whether or not the parent path
// carries a trailing one.
func TestChildCollapsesSeparators(t *testing.T) {
	withSlash := cloud.Locator{Bucket: "b", Object: "veo_scenes/run_1/"}
	withoutSlash := cloud.Locator{Bucket: "b", Object: "veo_scenes/run_1"}

	assert.Equal(t, "veo_scenes/run_1/clip.mp4", withSlash.Child("clip.mp4").Object)
	assert.Equal(t, "veo_scenes/run_1/clip.mp4", withoutSlash.Child("clip.mp4").Object)
	assert.Equal(t, "veo_scenes/run_1/clip.mp4", withSlash.Child("/clip.mp4").Object)
}

// TestMustLocatorPanics confirms the panicking variant rejects malformed
// input loudly instead of returning a zero locator.
func TestMustLocatorPanics(t *testing.T) {
	assert.Panics(t, func() { cloud.MustLocator("gs://bucket") })
	assert.NotPanics(t, func() { cloud.MustLocator("gs://bucket/object") })
}

// TestIsZero verifies the zero-value check used by callers to detect unset
// locators.
func TestIsZero(t *testing.T) {
	assert.True(t, cloud.Locator{}.IsZero())
	assert.False(t, cloud.Locator{Bucket: "b", Object: "o"}.IsZero())
}
