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

// This file defines the TranscodeService, which drives the Transcoder API to
// combine the pipeline's intermediate artifacts: muxing narration audio onto
// a silent clip, blending a music score under a narrated video, and
// concatenating finished scenes into the final commercial.
//
// All three operations share one execution routine: build a job config,
// submit it, poll the job on a fixed interval until it reaches a terminal
// state, and map the result onto the service's error taxonomy. Builders are
// exported as pure functions over the config types so they can be verified
// without any cloud traffic.
package services

import (
	"context"
	"fmt"
	"math"
	"time"

	transcoder "cloud.google.com/go/video/transcoder/apiv1"
	"cloud.google.com/go/video/transcoder/apiv1/transcoderpb"
	"github.com/google/uuid"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"google.golang.org/protobuf/types/known/durationpb"
)

// silenceGainDb is the gain applied in place of a zero or negative volume,
// low enough to be inaudible in the blended output.
const silenceGainDb = -96.0

// TranscoderAPI is the narrow Transcoder surface the service depends on.
// The generated client satisfies it directly.
type TranscoderAPI interface {
	CreateJob(ctx context.Context, req *transcoderpb.CreateJobRequest, opts ...gax.CallOption) (*transcoderpb.Job, error)
	GetJob(ctx context.Context, req *transcoderpb.GetJobRequest, opts ...gax.CallOption) (*transcoderpb.Job, error)
}

var _ TranscoderAPI = (*transcoder.Client)(nil)

// TranscodeService submits and supervises Transcoder API jobs.
type TranscodeService struct {
	API          TranscoderAPI // The Transcoder surface.
	Parent       string        // The "projects/{p}/locations/{l}" job parent.
	Bucket       string        // The artifact bucket.
	MuxPrefix    string        // Object-name prefix for muxed scene outputs.
	FinalPrefix  string        // Object-name prefix for assembled outputs.
	PollInterval time.Duration // Delay between job state polls.
	MaxWait      time.Duration // Upper bound on total supervision time; 0 means unbounded.
	TTLDays      int32         // Days the service keeps finished jobs around.
}

// NewTranscodeService wires a TranscodeService from the shared clients and
// config. Jobs run in the transcode location, which may differ from the
// model location.
func NewTranscodeService(clients *cloud.ServiceClients, config *cloud.Config) *TranscodeService {
	location := config.Transcode.Location
	if location == "" {
		location = config.Application.GoogleLocation
	}
	return &TranscodeService{
		API:          clients.TranscoderClient,
		Parent:       fmt.Sprintf("projects/%s/locations/%s", config.Application.GoogleProjectId, location),
		Bucket:       config.Storage.Bucket,
		MuxPrefix:    config.Storage.MuxPrefix,
		FinalPrefix:  config.Storage.FinalPrefix,
		PollInterval: time.Duration(config.Transcode.PollIntervalSeconds) * time.Second,
		MaxWait:      time.Duration(config.Transcode.MaxWaitSeconds) * time.Second,
		TTLDays:      int32(config.Transcode.TTLDays),
	}
}

// MuxNarration lays narration audio over a silent clip, trimming the output
// to the narration length, and returns the muxed object's locator.
//
// Inputs:
//   - ctx: The context for the request.
//   - video: The silent source clip.
//   - audio: The narration audio.
//   - audioSeconds: Length of the narration, used as the edit end offset.
//
// Outputs:
//   - cloud.Locator: The locator of the muxed MP4.
//   - error: InvalidInput for a non-positive length, JobFailure with the
//     service's own failure text when the job fails, Timeout past MaxWait.
func (t *TranscodeService) MuxNarration(ctx context.Context, video, audio cloud.Locator, audioSeconds float64) (cloud.Locator, error) {
	if audioSeconds <= 0 {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "narration length must be positive, got %f", audioSeconds)
	}
	outputDir := cloud.Locator{Bucket: t.Bucket, Object: joinObjectPath(t.MuxPrefix, fmt.Sprintf("mux_%s", uuid.New())) + "/"}
	config := MuxNarrationJob(video, audio, audioSeconds, outputDir)
	return t.run(ctx, config, outputDir)
}

// MuxMusic blends a music score under an already narrated video. The score
// is attenuated by the requested volume while the narration track passes
// through at unity gain.
//
// Inputs:
//   - ctx: The context for the request.
//   - video: The narrated source video.
//   - music: The score to blend underneath.
//   - volume: Linear score volume in [0, 1]; 0 silences the score.
//   - videoSeconds: Length of the video, used as the edit end offset.
func (t *TranscodeService) MuxMusic(ctx context.Context, video, music cloud.Locator, volume, videoSeconds float64) (cloud.Locator, error) {
	if volume < 0 || volume > 1 {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "music volume must be in [0, 1], got %f", volume)
	}
	if videoSeconds <= 0 {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "video length must be positive, got %f", videoSeconds)
	}
	outputDir := cloud.Locator{Bucket: t.Bucket, Object: joinObjectPath(t.FinalPrefix, fmt.Sprintf("scored_%s", uuid.New())) + "/"}
	config := MuxMusicJob(video, music, volume, videoSeconds, outputDir)
	return t.run(ctx, config, outputDir)
}

// Concat joins finished scene videos into one commercial in order. Each clip
// contributes one whole-length edit atom, so clip durations must be supplied
// alongside the locators.
//
// Inputs:
//   - ctx: The context for the request.
//   - clips: The scene videos, in presentation order. Must be non-empty.
//   - durations: Per-clip lengths in seconds, parallel to clips.
func (t *TranscodeService) Concat(ctx context.Context, clips []cloud.Locator, durations []float64) (cloud.Locator, error) {
	if len(clips) == 0 {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "at least one clip is required")
	}
	if len(clips) != len(durations) {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput,
			"got %d clips but %d durations", len(clips), len(durations))
	}
	for i, d := range durations {
		if d <= 0 {
			return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "clip %d has a non-positive duration %f", i, d)
		}
	}
	outputDir := cloud.Locator{Bucket: t.Bucket, Object: joinObjectPath(t.FinalPrefix, fmt.Sprintf("final_%s", uuid.New())) + "/"}
	config := ConcatJob(clips, durations, outputDir)
	return t.run(ctx, config, outputDir)
}

// run submits the job and polls it to a terminal state. On success it
// returns the locator of the single mux stream's output file.
func (t *TranscodeService) run(ctx context.Context, config *transcoderpb.JobConfig, outputDir cloud.Locator) (cloud.Locator, error) {
	job, err := t.API.CreateJob(ctx, &transcoderpb.CreateJobRequest{
		Parent: t.Parent,
		Job: &transcoderpb.Job{
			OutputUri:              outputDir.String(),
			JobConfig:              &transcoderpb.Job_Config{Config: config},
			TtlAfterCompletionDays: t.TTLDays,
		},
	})
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "failed to create the transcode job")
	}

	deadline := time.Time{}
	if t.MaxWait > 0 {
		deadline = time.Now().Add(t.MaxWait)
	}

	for {
		select {
		case <-ctx.Done():
			return cloud.Locator{}, model.WrapError(model.ErrTimeout, ctx.Err(), "transcode job %s interrupted", job.GetName())
		case <-time.After(t.PollInterval):
		}

		job, err = t.API.GetJob(ctx, &transcoderpb.GetJobRequest{Name: job.GetName()})
		if err != nil {
			return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "failed to poll transcode job %s", job.GetName())
		}

		switch job.GetState() {
		case transcoderpb.Job_SUCCEEDED:
			// Every builder emits exactly one mux stream.
			key := config.GetMuxStreams()[0].GetKey()
			return cloud.Locator{Bucket: outputDir.Bucket, Object: outputDir.Object + key + ".mp4"}, nil
		case transcoderpb.Job_FAILED:
			return cloud.Locator{}, model.NewError(model.ErrJobFailed,
				"transcode job %s failed: %s", job.GetName(), jobFailureText(job))
		case transcoderpb.Job_PENDING, transcoderpb.Job_RUNNING:
			// Keep polling.
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return cloud.Locator{}, model.NewError(model.ErrTimeout,
				"transcode job %s still %s after %s", job.GetName(), job.GetState(), t.MaxWait)
		}
	}
}

// jobFailureText extracts the service's failure description from a FAILED
// job, falling back to a fixed string when none was reported.
func jobFailureText(job *transcoderpb.Job) string {
	if job.GetError() == nil {
		return "Unknown error"
	}
	msg := job.GetError().GetMessage()
	if msg == "" {
		msg = "Unknown error"
	}
	if len(job.GetError().GetDetails()) > 0 {
		return fmt.Sprintf("%s (details: %v)", msg, job.GetError().GetDetails())
	}
	return msg
}

// MuxNarrationJob builds the config that pairs a silent clip with narration
// audio at 720p, trimmed to the narration length.
func MuxNarrationJob(video, audio cloud.Locator, audioSeconds float64, outputDir cloud.Locator) *transcoderpb.JobConfig {
	return &transcoderpb.JobConfig{
		Inputs: []*transcoderpb.Input{
			{Key: "video0", Uri: video.String()},
			{Key: "audio0", Uri: audio.String()},
		},
		EditList: []*transcoderpb.EditAtom{
			{
				Key:             "atom0",
				Inputs:          []string{"video0", "audio0"},
				StartTimeOffset: durationpb.New(0),
				EndTimeOffset:   durationpb.New(secondsToDuration(audioSeconds)),
			},
		},
		ElementaryStreams: []*transcoderpb.ElementaryStream{
			h264Stream("video-stream0", 1280, 720, 5_000_000, 30),
			aacStream("audio-stream0", nil),
		},
		MuxStreams: []*transcoderpb.MuxStream{
			{
				Key:               "sd",
				Container:         "mp4",
				ElementaryStreams: []string{"video-stream0", "audio-stream0"},
			},
		},
		Output: &transcoderpb.Output{Uri: outputDir.String()},
	}
}

// MuxMusicJob builds the config that blends a score under a narrated video
// at 720p. The narration track is mapped at unity gain and the score is
// attenuated to the requested linear volume.
func MuxMusicJob(video, music cloud.Locator, volume, videoSeconds float64, outputDir cloud.Locator) *transcoderpb.JobConfig {
	gain := MusicGainDb(volume)
	mapping := []*transcoderpb.AudioStream_AudioMapping{
		{AtomKey: "atom0", InputKey: "video0", InputTrack: 1, InputChannel: 0, OutputChannel: 0, GainDb: 0},
		{AtomKey: "atom0", InputKey: "video0", InputTrack: 1, InputChannel: 1, OutputChannel: 1, GainDb: 0},
		{AtomKey: "atom0", InputKey: "music0", InputTrack: 0, InputChannel: 0, OutputChannel: 0, GainDb: gain},
		{AtomKey: "atom0", InputKey: "music0", InputTrack: 0, InputChannel: 1, OutputChannel: 1, GainDb: gain},
	}
	return &transcoderpb.JobConfig{
		Inputs: []*transcoderpb.Input{
			{Key: "video0", Uri: video.String()},
			{Key: "music0", Uri: music.String()},
		},
		EditList: []*transcoderpb.EditAtom{
			{
				Key:             "atom0",
				Inputs:          []string{"video0", "music0"},
				StartTimeOffset: durationpb.New(0),
				EndTimeOffset:   durationpb.New(secondsToDuration(videoSeconds)),
			},
		},
		ElementaryStreams: []*transcoderpb.ElementaryStream{
			h264Stream("video-stream0", 1280, 720, 15_000_000, 30),
			aacStream("audio-stream0", mapping),
		},
		MuxStreams: []*transcoderpb.MuxStream{
			{
				Key:               "sd",
				Container:         "mp4",
				ElementaryStreams: []string{"video-stream0", "audio-stream0"},
			},
		},
		Output: &transcoderpb.Output{Uri: outputDir.String()},
	}
}

// ConcatJob builds the config that joins clips back to back at preview
// quality. Each clip becomes one whole-length edit atom.
func ConcatJob(clips []cloud.Locator, durations []float64, outputDir cloud.Locator) *transcoderpb.JobConfig {
	inputs := make([]*transcoderpb.Input, 0, len(clips))
	atoms := make([]*transcoderpb.EditAtom, 0, len(clips))
	for i, clip := range clips {
		key := fmt.Sprintf("input%d", i)
		inputs = append(inputs, &transcoderpb.Input{Key: key, Uri: clip.String()})
		atoms = append(atoms, &transcoderpb.EditAtom{
			Key:             fmt.Sprintf("atom%d", i),
			Inputs:          []string{key},
			StartTimeOffset: durationpb.New(0),
			EndTimeOffset:   durationpb.New(secondsToDuration(durations[i])),
		})
	}
	return &transcoderpb.JobConfig{
		Inputs:   inputs,
		EditList: atoms,
		ElementaryStreams: []*transcoderpb.ElementaryStream{
			h264Stream("video-stream0", 640, 360, 550_000, 30),
			aacStream("audio-stream0", nil),
		},
		MuxStreams: []*transcoderpb.MuxStream{
			{
				Key:               "sd",
				Container:         "mp4",
				ElementaryStreams: []string{"video-stream0", "audio-stream0"},
			},
		},
		Output: &transcoderpb.Output{Uri: outputDir.String()},
	}
}

// MusicGainDb converts a linear volume in [0, 1] to the decibel gain applied
// to the score track. Zero and negative volumes map to a floor low enough to
// be silent.
func MusicGainDb(volume float64) float64 {
	if volume <= 0 {
		return silenceGainDb
	}
	gain := 20 * math.Log10(volume)
	if gain < silenceGainDb {
		return silenceGainDb
	}
	return gain
}

func h264Stream(key string, width, height, bitrate int32, fps float64) *transcoderpb.ElementaryStream {
	return &transcoderpb.ElementaryStream{
		Key: key,
		ElementaryStream: &transcoderpb.ElementaryStream_VideoStream{
			VideoStream: &transcoderpb.VideoStream{
				CodecSettings: &transcoderpb.VideoStream_H264{
					H264: &transcoderpb.VideoStream_H264CodecSettings{
						WidthPixels:  width,
						HeightPixels: height,
						BitrateBps:   bitrate,
						FrameRate:    fps,
					},
				},
			},
		},
	}
}

func aacStream(key string, mapping []*transcoderpb.AudioStream_AudioMapping) *transcoderpb.ElementaryStream {
	return &transcoderpb.ElementaryStream{
		Key: key,
		ElementaryStream: &transcoderpb.ElementaryStream_AudioStream{
			AudioStream: &transcoderpb.AudioStream{
				Codec:           "aac",
				BitrateBps:      128_000,
				SampleRateHertz: 48_000,
				ChannelCount:    2,
				ChannelLayout:   []string{"fl", "fr"},
				Mapping:         mapping,
			},
		},
	}
}

// secondsToDuration converts fractional seconds to a time.Duration for the
// edit-list offsets.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
