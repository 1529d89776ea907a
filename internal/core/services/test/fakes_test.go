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

// Package services_test contains the test suite for the services package.
// This file provides the in-memory fakes substituted for the narrow provider
// interfaces (BlobStore, TranscoderAPI, SpeechAPI) so the services can be
// exercised without any cloud access.
package services_test

import (
	"bytes"
	"context"
	"io"
	"sync"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"cloud.google.com/go/video/transcoder/apiv1/transcoderpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"google.golang.org/genai"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
)

// fakeBlobStore is an in-memory BlobStore keyed by locator URI.
type fakeBlobStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	deleted      []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// put seeds an object without going through Upload.
func (f *fakeBlobStore) put(loc cloud.Locator, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[loc.String()] = data
}

func (f *fakeBlobStore) Upload(_ context.Context, loc cloud.Locator, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[loc.String()] = data
	f.contentTypes[loc.String()] = contentType
	return nil
}

func (f *fakeBlobStore) Download(_ context.Context, loc cloud.Locator, w io.Writer) error {
	f.mu.Lock()
	data, ok := f.objects[loc.String()]
	f.mu.Unlock()
	if !ok {
		return model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (f *fakeBlobStore) DownloadRange(_ context.Context, loc cloud.Locator, offset, length int64, w io.Writer) error {
	f.mu.Lock()
	data, ok := f.objects[loc.String()]
	f.mu.Unlock()
	if !ok {
		return model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	end := offset + length
	if length < 0 || end > int64(len(data)) {
		end = int64(len(data))
	}
	_, err := w.Write(data[offset:end])
	return err
}

func (f *fakeBlobStore) Size(_ context.Context, loc cloud.Locator) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[loc.String()]
	if !ok {
		return 0, model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	return int64(len(data)), nil
}

func (f *fakeBlobStore) Delete(_ context.Context, loc cloud.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, loc.String())
	f.deleted = append(f.deleted, loc.String())
	return nil
}

var _ services.BlobStore = (*fakeBlobStore)(nil)

// fakeTranscoder scripts the state sequence a job moves through. Polls past
// the end of the script repeat the final state.
type fakeTranscoder struct {
	states   []transcoderpb.Job_ProcessingState
	jobErr   *rpcstatus.Status
	created  []*transcoderpb.CreateJobRequest
	getCalls int
}

func (f *fakeTranscoder) CreateJob(_ context.Context, req *transcoderpb.CreateJobRequest, _ ...gax.CallOption) (*transcoderpb.Job, error) {
	f.created = append(f.created, req)
	return &transcoderpb.Job{Name: "projects/test-project/locations/us-central1/jobs/fake-job"}, nil
}

func (f *fakeTranscoder) GetJob(_ context.Context, req *transcoderpb.GetJobRequest, _ ...gax.CallOption) (*transcoderpb.Job, error) {
	idx := f.getCalls
	f.getCalls++
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	job := &transcoderpb.Job{Name: req.Name, State: f.states[idx]}
	if job.State == transcoderpb.Job_FAILED {
		job.Error = f.jobErr
	}
	return job, nil
}

var _ services.TranscoderAPI = (*fakeTranscoder)(nil)

// fakeSpeechAPI records the last synthesis request and returns canned bytes.
type fakeSpeechAPI struct {
	audio       []byte
	synthErr    error
	longWaitErr error
	longStuck   bool // When set, the long operation never finishes on its own.
	lastSynth   *texttospeechpb.SynthesizeSpeechRequest
	lastLong    *texttospeechpb.SynthesizeLongAudioRequest
}

func (f *fakeSpeechAPI) Synthesize(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.lastSynth = req
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.audio}, nil
}

func (f *fakeSpeechAPI) SynthesizeLong(_ context.Context, req *texttospeechpb.SynthesizeLongAudioRequest) (services.LongAudioOperation, error) {
	f.lastLong = req
	return fakeLongAudioOperation{err: f.longWaitErr, stuck: f.longStuck}, nil
}

type fakeLongAudioOperation struct {
	err   error
	stuck bool
}

func (f fakeLongAudioOperation) Wait(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	if f.stuck {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

var _ services.SpeechAPI = (*fakeSpeechAPI)(nil)

// fakeVideoAPI scripts a video-generation operation through successive polls.
// GenerateVideos returns the first scripted state; each poll advances through
// the rest, repeating the final state.
type fakeVideoAPI struct {
	ops        []*genai.GenerateVideosOperation
	genErr     error
	pollErr    error
	polls      int
	lastPrompt string
	lastImage  *genai.Image
	lastConfig *genai.GenerateVideosConfig
}

func (f *fakeVideoAPI) GenerateVideos(_ context.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.lastPrompt = prompt
	f.lastImage = image
	f.lastConfig = config
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.ops[0], nil
}

func (f *fakeVideoAPI) PollVideos(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	idx := f.polls
	if idx >= len(f.ops) {
		idx = len(f.ops) - 1
	}
	return f.ops[idx], nil
}

var _ services.VideoAPI = (*fakeVideoAPI)(nil)

// runningVideoOp builds an operation that has not finished yet.
func runningVideoOp() *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{Name: "operations/fake-veo"}
}

// doneVideoOp builds a completed operation pointing at the given clip URI.
// An empty URI models an operation that finished without producing a clip.
func doneVideoOp(uri string) *genai.GenerateVideosOperation {
	op := &genai.GenerateVideosOperation{Name: "operations/fake-veo", Done: true}
	if uri != "" {
		op.Response = &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: uri}}},
		}
	}
	return op
}
