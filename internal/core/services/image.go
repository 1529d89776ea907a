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

// This file defines the ImageService, which validates reference images and
// stages them in Cloud Storage for image-to-video generation. Validation is
// two-layered: the file extension is checked first, and when it is missing
// or unknown the leading bytes are sniffed for an image magic number.
package services

import (
	"context"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

// allowedImageMIMETypes is the closed set of image formats the video model
// accepts as a reference.
var allowedImageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// ImageService stages validated reference images in Cloud Storage.
type ImageService struct {
	Store  BlobStore // Destination artifact store.
	Bucket string    // The artifact bucket.
	Prefix string    // Object-name prefix for staged images.
}

// NewImageService wires an ImageService from the shared clients and config.
func NewImageService(clients *cloud.ServiceClients, config *cloud.Config) *ImageService {
	return &ImageService{
		Store:  NewGCSBlobStore(clients.StorageClient),
		Bucket: config.Storage.Bucket,
		Prefix: config.Storage.ImagePrefix,
	}
}

// Upload validates the local file as an image and copies it into the staging
// prefix, keeping its base name.
//
// Inputs:
//   - ctx: The context for the request.
//   - localPath: Path of the image on local disk.
//
// Outputs:
//   - cloud.Locator: The locator of the staged copy.
//   - string: The detected MIME type, needed by the video model.
//   - error: NotFound when the file does not exist, InvalidInput when it is
//     empty, not a regular file, or not a supported image format.
func (s *ImageService) Upload(ctx context.Context, localPath string) (cloud.Locator, string, error) {
	mimeType, err := ClassifyImage(localPath)
	if err != nil {
		return cloud.Locator{}, "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return cloud.Locator{}, "", model.WrapError(model.ErrUnexpected, err, "failed to open image %s", localPath)
	}
	defer f.Close()

	dest := cloud.Locator{Bucket: s.Bucket, Object: joinObjectPath(s.Prefix, filepath.Base(localPath))}
	if err := s.Store.Upload(ctx, dest, f, mimeType); err != nil {
		return cloud.Locator{}, "", err
	}
	return dest, mimeType, nil
}

// ClassifyImage checks that the file is a supported image and returns its
// MIME type. The extension is authoritative when it maps to a supported
// type; otherwise the file's magic number decides.
func ClassifyImage(localPath string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", model.NewError(model.ErrNotFound, "image %s does not exist", localPath)
		}
		return "", model.WrapError(model.ErrUnexpected, err, "failed to stat image %s", localPath)
	}
	if !info.Mode().IsRegular() {
		return "", model.NewError(model.ErrInvalidInput, "image %s is not a regular file", localPath)
	}
	if info.Size() == 0 {
		return "", model.NewError(model.ErrInvalidInput, "image %s is empty", localPath)
	}

	if mimeType := mime.TypeByExtension(strings.ToLower(path.Ext(localPath))); allowedImageMIMETypes[mimeType] {
		return mimeType, nil
	}
	return sniffImage(localPath)
}

// sniffImage reads the leading bytes of the file and matches them against
// known image magic numbers.
func sniffImage(localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", model.WrapError(model.ErrUnexpected, err, "failed to open image %s", localPath)
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", model.WrapError(model.ErrUnexpected, err, "failed to read image %s", localPath)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || !allowedImageMIMETypes[kind.MIME.Value] {
		return "", model.NewError(model.ErrInvalidInput,
			"%s is not a supported image format (jpeg, png, gif, bmp, tiff, webp)", localPath)
	}
	return kind.MIME.Value, nil
}
