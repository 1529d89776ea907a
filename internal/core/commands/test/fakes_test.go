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

// Package commands_test contains unit tests for the workflow commands. This
// file provides the fakes and context helpers the command tests share: an
// always-succeeding transcoder, an in-memory blob store, and a ready-to-use
// chain context.
package commands_test

import (
	"context"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/video/transcoder/apiv1/transcoderpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// newChainContext builds a workflow context carrying a background Go context,
// ready for a single command's Execute call.
func newChainContext() cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	return ctx
}

// instantTranscoder reports every job as succeeded on the first poll and
// records the submitted configurations.
type instantTranscoder struct {
	created []*transcoderpb.CreateJobRequest
}

func (f *instantTranscoder) CreateJob(_ context.Context, req *transcoderpb.CreateJobRequest, _ ...gax.CallOption) (*transcoderpb.Job, error) {
	f.created = append(f.created, req)
	return &transcoderpb.Job{Name: "projects/test-project/locations/us-central1/jobs/fake-job"}, nil
}

func (f *instantTranscoder) GetJob(_ context.Context, req *transcoderpb.GetJobRequest, _ ...gax.CallOption) (*transcoderpb.Job, error) {
	return &transcoderpb.Job{Name: req.Name, State: transcoderpb.Job_SUCCEEDED}, nil
}

// newInstantTranscodeService wires a TranscodeService over the instant fake.
func newInstantTranscodeService(api services.TranscoderAPI) *services.TranscodeService {
	return &services.TranscodeService{
		API:          api,
		Parent:       "projects/test-project/locations/us-central1",
		Bucket:       "test-bucket",
		MuxPrefix:    "muxed/",
		FinalPrefix:  "commercials/",
		PollInterval: time.Millisecond,
		MaxWait:      time.Second,
		TTLDays:      1,
	}
}

// memoryBlobStore is a minimal in-memory BlobStore tracking deletions.
type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte)}
}

func (f *memoryBlobStore) Upload(_ context.Context, loc cloud.Locator, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[loc.String()] = data
	return nil
}

func (f *memoryBlobStore) Download(_ context.Context, loc cloud.Locator, w io.Writer) error {
	f.mu.Lock()
	data, ok := f.objects[loc.String()]
	f.mu.Unlock()
	if !ok {
		return model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	_, err := w.Write(data)
	return err
}

func (f *memoryBlobStore) DownloadRange(ctx context.Context, loc cloud.Locator, _, _ int64, w io.Writer) error {
	return f.Download(ctx, loc, w)
}

func (f *memoryBlobStore) Size(_ context.Context, loc cloud.Locator) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[loc.String()]
	if !ok {
		return 0, model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	return int64(len(data)), nil
}

func (f *memoryBlobStore) Delete(_ context.Context, loc cloud.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, loc.String())
	f.deleted = append(f.deleted, loc.String())
	return nil
}

var _ services.BlobStore = (*memoryBlobStore)(nil)
