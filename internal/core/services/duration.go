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

// This file defines the DurationService, which measures the playable length
// of media artifacts already in Cloud Storage. Three probe strategies exist:
//
//   - MP4: a range read of the object's leading bytes parsed for the movie
//     header, avoiding a full download of large video clips.
//   - Raw PCM: pure arithmetic over the object size using the known sample
//     rate, channel count, and sample width of the synthesis pipeline.
//   - Tagged audio (MP3/WAV): full download and decode of the container.
package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path"
	"strings"

	mp4 "github.com/abema/go-mp4"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

const (
	// partialProbeBytes caps how much of an MP4 object is fetched when
	// probing for its movie header.
	partialProbeBytes = int64(5 * 1024 * 1024)

	// Raw PCM objects produced by long-audio synthesis are mono 16-bit at
	// this sample rate.
	defaultPCMSampleRate = 22500
	defaultPCMChannels   = 1
	pcmBytesPerSample    = 2
)

// DurationService probes media artifacts in Cloud Storage for their length.
type DurationService struct {
	Store BlobStore
}

// NewDurationService wires a DurationService on top of the given store.
func NewDurationService(store BlobStore) *DurationService {
	return &DurationService{Store: store}
}

// ProbeMP4 returns the duration in seconds of an MP4 object by fetching at
// most the first 5 MiB and parsing the movie header from it. Objects whose
// header sits beyond that window are rejected as invalid input; the pipeline
// only produces fast-start files.
//
// Inputs:
//   - ctx: The context for the request.
//   - loc: The locator of the MP4 object.
//
// Outputs:
//   - float64: The duration in seconds.
//   - error: NotFound when the object is missing, InvalidInput when the
//     prefix does not contain a movie header.
func (d *DurationService) ProbeMP4(ctx context.Context, loc cloud.Locator) (float64, error) {
	size, err := d.Store.Size(ctx, loc)
	if err != nil {
		return 0, err
	}
	fetch := size
	if fetch > partialProbeBytes {
		fetch = partialProbeBytes
	}

	tmp, err := os.CreateTemp("", "mp4-probe-*.mp4")
	if err != nil {
		return 0, model.WrapError(model.ErrUnexpected, err, "failed to create temp file for probe")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := d.Store.DownloadRange(ctx, loc, 0, fetch, tmp); err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return 0, model.WrapError(model.ErrUnexpected, err, "failed to rewind probe file")
	}

	info, err := mp4.Probe(tmp)
	if err != nil {
		return 0, model.WrapError(model.ErrInvalidInput, err,
			"no movie header found in the first %d bytes of %s", fetch, loc)
	}
	if info.Timescale == 0 {
		return 0, model.NewError(model.ErrInvalidInput, "movie header of %s has a zero timescale", loc)
	}
	return float64(info.Duration) / float64(info.Timescale), nil
}

// ProbePCM returns the duration in seconds of a raw LINEAR16 PCM object
// using only its byte size. A sampleRate of zero selects the synthesis
// pipeline's default of 22500 Hz mono.
//
// Inputs:
//   - ctx: The context for the request.
//   - loc: The locator of the PCM object.
//   - sampleRate: Samples per second, or 0 for the pipeline default.
//   - channels: Channel count, or 0 for mono.
//
// Outputs:
//   - float64: The duration in seconds.
//   - error: NotFound when the object is missing.
func (d *DurationService) ProbePCM(ctx context.Context, loc cloud.Locator, sampleRate, channels int) (float64, error) {
	if sampleRate == 0 {
		sampleRate = defaultPCMSampleRate
	}
	if channels == 0 {
		channels = defaultPCMChannels
	}
	if sampleRate < 0 || channels < 0 {
		return 0, model.NewError(model.ErrInvalidInput, "sample rate and channel count must be positive")
	}

	size, err := d.Store.Size(ctx, loc)
	if err != nil {
		return 0, err
	}
	samples := size / int64(pcmBytesPerSample*channels)
	return float64(samples) / float64(sampleRate), nil
}

// ProbeAudio returns the duration in seconds of a tagged audio object. The
// container is chosen from the object extension: ".mp3" and ".wav" are
// decoded after a full download, ".pcm" falls through to the arithmetic
// probe with default parameters.
func (d *DurationService) ProbeAudio(ctx context.Context, loc cloud.Locator) (float64, error) {
	switch strings.ToLower(path.Ext(loc.Object)) {
	case ".mp3":
		return d.probeDecoded(ctx, loc, decodeMP3Duration)
	case ".wav":
		return d.probeDecoded(ctx, loc, decodeWAVDuration)
	case ".pcm", ".raw":
		return d.ProbePCM(ctx, loc, 0, 0)
	default:
		return 0, model.NewError(model.ErrInvalidInput, "unsupported audio extension on %s", loc)
	}
}

// probeDecoded downloads the object to a temp file and runs decode on it.
func (d *DurationService) probeDecoded(ctx context.Context, loc cloud.Locator, decode func(*os.File) (float64, error)) (float64, error) {
	tmpPath, cleanup, err := stageToTempFile(ctx, d.Store, loc, "audio-probe-", 0)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	f, err := os.Open(tmpPath)
	if err != nil {
		return 0, model.WrapError(model.ErrUnexpected, err, "failed to open staged audio file")
	}
	defer f.Close()

	seconds, err := decode(f)
	if err != nil {
		return 0, model.WrapError(model.ErrInvalidInput, err, "failed to decode audio object %s", loc)
	}
	return seconds, nil
}

func decodeMP3Duration(f *os.File) (float64, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	if dec.SampleRate() == 0 {
		return 0, fmt.Errorf("mp3 stream reports a zero sample rate")
	}
	// Length is the decoded byte count of 16-bit stereo output.
	samples := dec.Length() / 4
	return float64(samples) / float64(dec.SampleRate()), nil
}

func decodeWAVDuration(f *os.File) (float64, error) {
	dec := wav.NewDecoder(f)
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return math.Max(d.Seconds(), 0), nil
}
