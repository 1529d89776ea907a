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

// Package cloud contains data structures and utilities for interacting with
// Google Cloud services. This file defines the Locator type, the application's
// internal representation of a Google Cloud Storage (GCS) object reference,
// along with parsing, formatting, and the public-URL projection.
//
// Structs:
//   - Locator: A (bucket, object) pair identifying a blob in GCS.
//
// Functions:
//   - ParseLocator: Parses a "gs://bucket/object" URI into a Locator.
//   - MustLocator: Panicking variant of ParseLocator for static values.
package cloud

import (
	"strings"

	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

const (
	// LocatorScheme is the URI scheme prefix for GCS object locators.
	LocatorScheme = "gs://"
	// PublicStorageHost is the fixed host used for the public HTTPS
	// projection of a locator.
	PublicStorageHost = "storage.googleapis.com"
)

// Locator is a lightweight reference to an object in Google Cloud Storage.
// It is constructed ad hoc per operation and passed between services; the
// object itself is owned by GCS.
type Locator struct {
	Bucket string // The name of the GCS bucket.
	Object string // The object path within the bucket. Never empty for a valid locator.
}

// ParseLocator parses a GCS URI of the form "gs://bucket/object/path" into a
// Locator. The bucket and object parts must both be non-empty.
//
// Inputs:
//   - uri: The URI string to parse.
//
// Outputs:
//   - Locator: The parsed locator.
//   - error: A model.ErrInvalidInput error when the scheme, bucket, or object
//     part is missing.
func ParseLocator(uri string) (Locator, error) {
	if !strings.HasPrefix(uri, LocatorScheme) {
		return Locator{}, model.NewError(model.ErrInvalidInput, "invalid GCS URI %q: must start with %q", uri, LocatorScheme)
	}
	rest := strings.TrimPrefix(uri, LocatorScheme)
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return Locator{}, model.NewError(model.ErrInvalidInput, "invalid GCS URI %q: format must be gs://BUCKET/OBJECT", uri)
	}
	bucket, object := rest[:idx], rest[idx+1:]
	if bucket == "" {
		return Locator{}, model.NewError(model.ErrInvalidInput, "invalid GCS URI %q: missing bucket name", uri)
	}
	if object == "" {
		return Locator{}, model.NewError(model.ErrInvalidInput, "invalid GCS URI %q: missing object name after bucket", uri)
	}
	return Locator{Bucket: bucket, Object: object}, nil
}

// MustLocator parses a GCS URI and panics on failure. Intended for statically
// known values in tests and setup code.
func MustLocator(uri string) Locator {
	l, err := ParseLocator(uri)
	if err != nil {
		panic(err)
	}
	return l
}

// String formats the locator back into a "gs://bucket/object" URI. For every
// valid locator, ParseLocator(l.String()) yields l back.
func (l Locator) String() string {
	return LocatorScheme + l.Bucket + "/" + l.Object
}

// IsZero reports whether the locator is the empty value.
func (l Locator) IsZero() bool {
	return l.Bucket == "" && l.Object == ""
}

// PublicURL projects the locator onto the public HTTPS host, producing
// "https://storage.googleapis.com/bucket/object".
//
// Outputs:
//   - string: The public URL.
//   - error: A model.ErrInvalidInput error when the locator is incomplete.
func (l Locator) PublicURL() (string, error) {
	if l.Bucket == "" || l.Object == "" {
		return "", model.NewError(model.ErrInvalidInput, "cannot build public URL from incomplete locator %+v", l)
	}
	return "https://" + PublicStorageHost + "/" + l.Bucket + "/" + l.Object, nil
}

// Child returns a locator for an object nested under this locator's object
// path. Duplicate separators are collapsed so prefixes may be written with or
// without a trailing slash.
func (l Locator) Child(name string) Locator {
	joined := strings.TrimSuffix(l.Object, "/") + "/" + strings.TrimPrefix(name, "/")
	return Locator{Bucket: l.Bucket, Object: joined}
}
