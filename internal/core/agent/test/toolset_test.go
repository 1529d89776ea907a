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

// Package agent_test exercises the agent's tool dispatch surface without a
// model in the loop: each test plays the role of the model and issues the
// function calls directly against fake-backed services.
package agent_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/video/transcoder/apiv1/transcoderpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/agent"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

// memoryStore is a map-backed BlobStore for the duration probes.
type memoryStore struct {
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, loc cloud.Locator, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[loc.String()] = data
	return nil
}

func (m *memoryStore) Download(_ context.Context, loc cloud.Locator, w io.Writer) error {
	data, ok := m.objects[loc.String()]
	if !ok {
		return model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (m *memoryStore) DownloadRange(ctx context.Context, loc cloud.Locator, _, _ int64, w io.Writer) error {
	return m.Download(ctx, loc, w)
}

func (m *memoryStore) Size(_ context.Context, loc cloud.Locator) (int64, error) {
	data, ok := m.objects[loc.String()]
	if !ok {
		return 0, model.NewError(model.ErrNotFound, "object %s does not exist", loc)
	}
	return int64(len(data)), nil
}

func (m *memoryStore) Delete(_ context.Context, loc cloud.Locator) error {
	delete(m.objects, loc.String())
	return nil
}

var _ services.BlobStore = (*memoryStore)(nil)

// instantTranscoder reports every job as succeeded on the first poll.
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

var _ services.TranscoderAPI = (*instantTranscoder)(nil)

// doneVideoAPI finishes every generation immediately with the given clip URI.
type doneVideoAPI struct {
	uri string
}

func (f *doneVideoAPI) GenerateVideos(_ context.Context, _ string, _ *genai.Image, _ *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return &genai.GenerateVideosOperation{
		Name: "operations/fake-veo",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: f.uri}}},
		},
	}, nil
}

func (f *doneVideoAPI) PollVideos(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return op, nil
}

var _ services.VideoAPI = (*doneVideoAPI)(nil)

// newTestToolset wires a Toolset over the fakes. Tools a test never calls
// stay nil; dispatching to them would be a test bug, not a production path.
func newTestToolset(store services.BlobStore) *agent.Toolset {
	return &agent.Toolset{
		Video: &services.VideoService{
			API:          &doneVideoAPI{uri: "gs://test-bucket/veo_scenes/veo_1/sample_0.mp4"},
			Bucket:       "test-bucket",
			Prefix:       "veo_scenes/",
			PollInterval: time.Millisecond,
		},
		Transcode: &services.TranscodeService{
			API:          &instantTranscoder{},
			Parent:       "projects/test-project/locations/us-central1",
			Bucket:       "test-bucket",
			MuxPrefix:    "muxed/",
			FinalPrefix:  "commercials/",
			PollInterval: time.Millisecond,
			MaxWait:      time.Second,
			TTLDays:      1,
		},
		Duration: services.NewDurationService(store),
	}
}

// TestDispatchPublicURL verifies the public_url tool projects a gs:// URI
// onto its HTTPS form and reports parse failures as tool errors.
func TestDispatchPublicURL(t *testing.T) {
	tools := newTestToolset(newMemoryStore())

	out := tools.Dispatch(context.Background(), "public_url", map[string]any{
		"uri": "gs://test-bucket/commercials/final_1.mp4",
	})
	assert.Equal(t, "https://storage.googleapis.com/test-bucket/commercials/final_1.mp4", out["result"])

	out = tools.Dispatch(context.Background(), "public_url", map[string]any{"uri": "not-a-uri"})
	assert.Nil(t, out["result"])
	assert.NotEmpty(t, out["error"])
}

// TestDispatchUnknownTool verifies an unrecognized tool name comes back as an
// error response rather than a panic, since the model chooses the names.
func TestDispatchUnknownTool(t *testing.T) {
	tools := newTestToolset(newMemoryStore())

	out := tools.Dispatch(context.Background(), "render_hologram", nil)
	assert.Nil(t, out["result"])
	assert.Contains(t, out["error"], "render_hologram")
}

// TestDispatchAudioDuration probes a seeded PCM object through the tool
// surface. 90000 bytes of default-parameter PCM is exactly two seconds.
func TestDispatchAudioDuration(t *testing.T) {
	store := newMemoryStore()
	loc := cloud.MustLocator("gs://test-bucket/tts/long_1.pcm")
	assert.NoError(t, store.Upload(context.Background(), loc, bytes.NewReader(make([]byte, 90000)), ""))
	tools := newTestToolset(store)

	out := tools.Dispatch(context.Background(), "audio_duration", map[string]any{"uri": loc.String()})
	assert.Equal(t, 2.0, out["result"])
}

// TestDispatchJoinVideos verifies the join tool decodes the model's JSON
// argument shapes (arrays arrive as []any) and runs the concat job.
func TestDispatchJoinVideos(t *testing.T) {
	tools := newTestToolset(newMemoryStore())

	out := tools.Dispatch(context.Background(), "join_videos", map[string]any{
		"video_uris": []any{
			"gs://test-bucket/muxed/mux_1/sd.mp4",
			"gs://test-bucket/muxed/mux_2/sd.mp4",
		},
		"durations": []any{5.5, 6.0},
	})
	result, ok := out["result"].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(result, "gs://test-bucket/commercials/final_"))
}

// TestDispatchJoinVideosRejectsMismatchedDurations verifies the parallel
// arrays contract is enforced before any job is submitted.
func TestDispatchJoinVideosRejectsMismatchedDurations(t *testing.T) {
	tools := newTestToolset(newMemoryStore())

	out := tools.Dispatch(context.Background(), "join_videos", map[string]any{
		"video_uris": []any{"gs://test-bucket/muxed/mux_1/sd.mp4"},
		"durations":  []any{},
	})
	assert.Nil(t, out["result"])
	assert.NotEmpty(t, out["error"])
}

// TestDispatchGenerateVideo drives a full generation through the tool
// surface and verifies the clip locator comes back as the result string.
func TestDispatchGenerateVideo(t *testing.T) {
	tools := newTestToolset(newMemoryStore())

	out := tools.Dispatch(context.Background(), "generate_video", map[string]any{
		"prompt":           "a lantern glowing at dusk",
		"duration_seconds": 6.0,
	})
	assert.Equal(t, "gs://test-bucket/veo_scenes/veo_1/sample_0.mp4", out["result"])
}
