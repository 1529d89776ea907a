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

// This file tests the ImageService: format classification by extension and
// by magic number, and the staging upload.
package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"github.com/stretchr/testify/assert"
)

// pngHeader is the fixed 8-byte PNG signature followed by enough padding to
// satisfy the magic-number sniffer.
var pngHeader = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 32)...)

// jpegHeader is the JPEG start-of-image marker with padding.
var jpegHeader = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestClassifyImageByExtension verifies a supported extension is
// authoritative, no sniffing needed.
func TestClassifyImageByExtension(t *testing.T) {
	p := writeTempFile(t, "reference.png", []byte("extension wins, content unchecked"))

	mimeType, err := services.ClassifyImage(p)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
}

// TestClassifyImageByMagicNumber verifies an extensionless file is accepted
// when its leading bytes carry a known image signature.
func TestClassifyImageByMagicNumber(t *testing.T) {
	png := writeTempFile(t, "upload-1", pngHeader)
	jpg := writeTempFile(t, "upload-2", jpegHeader)

	mimeType, err := services.ClassifyImage(png)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	mimeType, err = services.ClassifyImage(jpg)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
}

// TestClassifyImageRejectsTextFile verifies plain text is rejected whether or
// not it hides behind a neutral name.
func TestClassifyImageRejectsTextFile(t *testing.T) {
	p := writeTempFile(t, "notes.txt", []byte("just some UTF-8 text, not an image"))

	_, err := services.ClassifyImage(p)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
}

// TestClassifyImageRejectsEmptyAndMissing covers the stat-level guards.
func TestClassifyImageRejectsEmptyAndMissing(t *testing.T) {
	empty := writeTempFile(t, "empty.png", nil)

	_, err := services.ClassifyImage(empty)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))

	_, err = services.ClassifyImage(filepath.Join(t.TempDir(), "never-written.png"))
	assert.True(t, model.IsKind(err, model.ErrNotFound))
}

// TestImageUploadStagesUnderPrefix verifies the upload keeps the base name
// and lands under the staging prefix with the detected content type.
func TestImageUploadStagesUnderPrefix(t *testing.T) {
	p := writeTempFile(t, "hero-shot.png", pngHeader)
	store := newFakeBlobStore()
	svc := &services.ImageService{Store: store, Bucket: "test-bucket", Prefix: "agent_image_uploads/"}

	loc, mimeType, err := svc.Upload(context.Background(), p)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "test-bucket", loc.Bucket)
	assert.Equal(t, "agent_image_uploads/hero-shot.png", loc.Object)
	assert.Equal(t, []byte(pngHeader), store.objects[loc.String()])
	assert.Equal(t, "image/png", store.contentTypes[loc.String()])
}

// TestImageUploadRejectsInvalidFile verifies nothing is uploaded when
// classification fails.
func TestImageUploadRejectsInvalidFile(t *testing.T) {
	p := writeTempFile(t, "payload.bin", []byte("binary junk"))
	store := newFakeBlobStore()
	svc := &services.ImageService{Store: store, Bucket: "test-bucket", Prefix: "agent_image_uploads/"}

	_, _, err := svc.Upload(context.Background(), p)
	assert.True(t, model.IsKind(err, model.ErrInvalidInput))
	assert.Empty(t, store.objects)
}
