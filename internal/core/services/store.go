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

// Package services contains the business logic of the video producer. This
// file defines the BlobStore abstraction over Google Cloud Storage and its
// production implementation. Every media-producing service persists and
// re-reads its artifacts through this interface, which keeps the services
// testable against an in-memory fake.
//
// Logic Flow:
//  1. Synthesis services upload bytes or local staging files to object names
//     they generate under a configured prefix.
//  2. Duration probes read objects back, either fully or as a leading byte
//     range, into transient local files that are always removed.
//  3. The assembly workflow deletes intermediate artifacts once the final
//     commercial is written.
package services

import (
	"context"
	"errors"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

// BlobStore is the narrow storage interface the services depend on. The
// production implementation is GCSBlobStore; tests substitute a fake.
type BlobStore interface {
	// Upload writes the contents of r to the object named by the locator.
	Upload(ctx context.Context, loc cloud.Locator, r io.Reader, contentType string) error

	// Download streams the full object into w.
	Download(ctx context.Context, loc cloud.Locator, w io.Writer) error

	// DownloadRange streams at most length bytes starting at offset into w.
	DownloadRange(ctx context.Context, loc cloud.Locator, offset, length int64, w io.Writer) error

	// Size returns the object's size in bytes, or a NotFound error.
	Size(ctx context.Context, loc cloud.Locator) (int64, error)

	// Delete removes the object. Removing a missing object is not an error.
	Delete(ctx context.Context, loc cloud.Locator) error
}

// GCSBlobStore implements BlobStore on top of the Cloud Storage client.
type GCSBlobStore struct {
	Client *storage.Client // The GCS client for interacting with the storage service.
}

// NewGCSBlobStore wraps a storage client in the BlobStore interface.
func NewGCSBlobStore(client *storage.Client) *GCSBlobStore {
	return &GCSBlobStore{Client: client}
}

// Upload streams the reader's content to the destination object. The writer
// must be closed to finalize the upload; a failed close surfaces as a remote
// call failure because the object may not exist afterwards.
func (s *GCSBlobStore) Upload(ctx context.Context, loc cloud.Locator, r io.Reader, contentType string) error {
	w := s.Client.Bucket(loc.Bucket).Object(loc.Object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return model.WrapError(model.ErrRemoteCall, err, "failed to upload %s", loc)
	}
	if err := w.Close(); err != nil {
		return model.WrapError(model.ErrRemoteCall, err, "failed to finalize upload of %s", loc)
	}
	return nil
}

// Download streams the whole object into w.
func (s *GCSBlobStore) Download(ctx context.Context, loc cloud.Locator, w io.Writer) error {
	r, err := s.Client.Bucket(loc.Bucket).Object(loc.Object).NewReader(ctx)
	if err != nil {
		return wrapStorageErr(err, loc)
	}
	defer func() { _ = r.Close() }()
	if _, err := io.Copy(w, r); err != nil {
		return model.WrapError(model.ErrRemoteCall, err, "failed to read %s", loc)
	}
	return nil
}

// DownloadRange streams a leading byte range of the object into w. Used by
// the partial-duration probe to avoid pulling whole videos.
func (s *GCSBlobStore) DownloadRange(ctx context.Context, loc cloud.Locator, offset, length int64, w io.Writer) error {
	r, err := s.Client.Bucket(loc.Bucket).Object(loc.Object).NewRangeReader(ctx, offset, length)
	if err != nil {
		return wrapStorageErr(err, loc)
	}
	defer func() { _ = r.Close() }()
	if _, err := io.Copy(w, r); err != nil {
		return model.WrapError(model.ErrRemoteCall, err, "failed to read range of %s", loc)
	}
	return nil
}

// Size returns the object's size from its attributes.
func (s *GCSBlobStore) Size(ctx context.Context, loc cloud.Locator) (int64, error) {
	attrs, err := s.Client.Bucket(loc.Bucket).Object(loc.Object).Attrs(ctx)
	if err != nil {
		return 0, wrapStorageErr(err, loc)
	}
	return attrs.Size, nil
}

// Delete removes the object, tolerating objects that are already gone.
func (s *GCSBlobStore) Delete(ctx context.Context, loc cloud.Locator) error {
	err := s.Client.Bucket(loc.Bucket).Object(loc.Object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return wrapStorageErr(err, loc)
	}
	return nil
}

// wrapStorageErr maps storage client errors onto the typed error channel.
func wrapStorageErr(err error, loc cloud.Locator) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return model.WrapError(model.ErrNotFound, err, "object %s not found", loc)
	}
	return model.WrapError(model.ErrRemoteCall, err, "storage call for %s failed", loc)
}

// stageToTempFile copies an object to a transient local file and returns its
// path together with a cleanup function. Some media parsers need a seekable
// file rather than a stream. The cleanup function always removes the file,
// including on failure paths, and is safe to defer immediately.
func stageToTempFile(ctx context.Context, store BlobStore, loc cloud.Locator, prefix string, limit int64) (path string, cleanup func(), err error) {
	tempFile, err := os.CreateTemp("", prefix)
	if err != nil {
		return "", func() {}, model.WrapError(model.ErrUnexpected, err, "could not create temp file")
	}
	cleanup = func() { _ = os.Remove(tempFile.Name()) }

	if limit > 0 {
		err = store.DownloadRange(ctx, loc, 0, limit, tempFile)
	} else {
		err = store.Download(ctx, loc, tempFile)
	}
	closeErr := tempFile.Close()
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	if closeErr != nil {
		cleanup()
		return "", func() {}, model.WrapError(model.ErrUnexpected, closeErr, "could not flush temp file")
	}
	return tempFile.Name(), cleanup, nil
}
