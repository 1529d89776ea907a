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
// file defines the SpeechService, which turns narration text into an audio
// artifact in Cloud Storage using the Text-to-Speech API.
//
// Logic Flow:
//  1. The requested voice category is resolved against a fixed table of
//     supported voices; unknown categories are rejected up front.
//  2. Short inputs are synthesized online (MP3 bytes returned in the
//     response) and the bytes are uploaded to a freshly generated object name.
//  3. Long inputs are submitted as a server-side long-audio operation that
//     writes LINEAR16 PCM directly to the destination object; the service
//     blocks on the operation under a configured wait bound.
//
// The two paths intentionally produce different formats (MP3 vs raw PCM) —
// downstream duration probes and mux jobs handle each per-case.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

// Voice describes one entry of the fixed voice-category table.
type Voice struct {
	LanguageCode string                       // BCP-47 language code (e.g., "en-US").
	Name         string                       // The provider voice name.
	Gender       texttospeechpb.SsmlVoiceGender // The SSML voice gender.
	Description  string                       // Short human description, surfaced to the agent.
}

// VoiceCategories is the closed set of voice categories the producer
// supports, keyed by the normalized category name the agent uses.
var VoiceCategories = map[string]Voice{
	"chirp_female_aoede":   {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Aoede", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A high-definition female voice, offering improved clarity."},
	"chirp_male_puck":      {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Puck", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A high-definition male voice with clear articulation."},
	"chirp_male_charon":    {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Charon", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A high-definition male voice with a slightly deeper tone."},
	"chirp_female_kore":    {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Kore", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A high-definition female voice with a gentle quality."},
	"chirp_male_fenrir":    {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Fenrir", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A high-definition male voice suitable for authoritative narration."},
	"chirp_female_leda":    {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Leda", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A high-definition female voice with a smooth and flowing delivery."},
	"chirp_male_orus":      {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Orus", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A high-definition male voice with a commanding presence."},
	"chirp_female_zephyr":  {LanguageCode: "en-US", Name: "en-US-Chirp3-HD-Zephyr", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A high-definition female voice with a bright and energetic tone."},
	"male_high":            {LanguageCode: "en-US", Name: "en-US-Wavenet-D", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A premium male voice for long-form narration."},
	"female_high":          {LanguageCode: "en-US", Name: "en-US-Wavenet-F", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A premium female voice for long-form narration."},
	"male_low":             {LanguageCode: "en-US", Name: "en-US-Standard-D", Gender: texttospeechpb.SsmlVoiceGender_MALE, Description: "A standard male voice."},
	"female_low":           {LanguageCode: "en-US", Name: "en-US-Standard-F", Gender: texttospeechpb.SsmlVoiceGender_FEMALE, Description: "A standard female voice."},
}

// VoiceCategoryNames returns the sorted category names, used in error
// messages and the agent tool declaration.
func VoiceCategoryNames() []string {
	names := make([]string, 0, len(VoiceCategories))
	for k := range VoiceCategories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LongAudioOperation is the in-flight handle of a long-audio synthesis job.
type LongAudioOperation interface {
	// Wait blocks until the operation reaches a terminal state or the
	// context expires.
	Wait(ctx context.Context) error
}

// SpeechAPI is the narrow Text-to-Speech surface the service depends on.
type SpeechAPI interface {
	// Synthesize performs online synthesis, returning the audio bytes.
	Synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

	// SynthesizeLong starts a long-audio synthesis operation targeting a GCS
	// destination.
	SynthesizeLong(ctx context.Context, req *texttospeechpb.SynthesizeLongAudioRequest) (LongAudioOperation, error)
}

// GCPSpeechAPI adapts the generated Text-to-Speech clients to SpeechAPI.
type GCPSpeechAPI struct {
	Sync *texttospeech.Client
	Long *texttospeech.TextToSpeechLongAudioSynthesizeClient
}

// Synthesize delegates to the online synthesis client.
func (g *GCPSpeechAPI) Synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return g.Sync.SynthesizeSpeech(ctx, req)
}

// SynthesizeLong delegates to the long-audio client.
func (g *GCPSpeechAPI) SynthesizeLong(ctx context.Context, req *texttospeechpb.SynthesizeLongAudioRequest) (LongAudioOperation, error) {
	op, err := g.Long.SynthesizeLongAudio(ctx, req)
	if err != nil {
		return nil, err
	}
	return gcpLongAudioOperation{op: op}, nil
}

type gcpLongAudioOperation struct {
	op *texttospeech.SynthesizeLongAudioOperation
}

func (g gcpLongAudioOperation) Wait(ctx context.Context) error {
	_, err := g.op.Wait(ctx)
	return err
}

// SpeechService synthesizes narration audio into Cloud Storage.
type SpeechService struct {
	API           SpeechAPI     // The Text-to-Speech surface.
	Store         BlobStore     // Destination artifact store.
	Bucket        string        // The artifact bucket.
	Prefix        string        // Object-name prefix for narration artifacts (e.g., "tts/").
	Parent        string        // The "projects/{p}/locations/{l}" parent for long-audio requests.
	Timeout       time.Duration // Wait bound for long-audio operations.
	SyncByteLimit int           // Inputs at or under this many bytes use the online path.
}

// NewSpeechService wires a SpeechService from the shared clients and config.
func NewSpeechService(clients *cloud.ServiceClients, config *cloud.Config) *SpeechService {
	return &SpeechService{
		API:           &GCPSpeechAPI{Sync: clients.SpeechClient, Long: clients.LongAudioClient},
		Store:         NewGCSBlobStore(clients.StorageClient),
		Bucket:        config.Storage.Bucket,
		Prefix:        config.Storage.SpeechPrefix,
		Parent:        fmt.Sprintf("projects/%s/locations/%s", config.Application.GoogleProjectId, config.Application.GoogleLocation),
		Timeout:       time.Duration(config.Models.SpeechTimeout) * time.Second,
		SyncByteLimit: config.Models.SyncByteLimit,
	}
}

// SynthesisRequest carries the inputs for one narration synthesis call.
type SynthesisRequest struct {
	Text          string  // The narration text. Treated as SSML when it begins with "<speak>".
	VoiceCategory string  // One of the VoiceCategories keys; case and spaces are normalized.
	SpeakingRate  float64 // Speed of speech; 1.0 is normal.
	Pitch         float64 // Pitch adjustment; 0.0 is normal.
	VolumeGainDb  float64 // Volume gain adjustment; 0.0 is normal.
}

// Synthesize produces the narration audio artifact and returns its locator.
// Short inputs yield an MP3 object ("<prefix>chirp_<uuid>.mp3"); long inputs
// yield raw LINEAR16 PCM ("<prefix>long_<uuid>.pcm") written server-side.
//
// Inputs:
//   - ctx: The context for the request.
//   - req: The synthesis request.
//
// Outputs:
//   - cloud.Locator: The locator of the synthesized audio.
//   - error: InvalidInput for an unknown category or empty text, Timeout when
//     the long-audio wait bound is exceeded, RemoteCallFailure otherwise.
func (s *SpeechService) Synthesize(ctx context.Context, req SynthesisRequest) (cloud.Locator, error) {
	if strings.TrimSpace(req.Text) == "" {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "narration text is required")
	}
	normalized := strings.ToLower(strings.ReplaceAll(req.VoiceCategory, " ", "_"))
	voice, ok := VoiceCategories[normalized]
	if !ok {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput,
			"invalid voice_category %q, valid options are: %s", req.VoiceCategory, strings.Join(VoiceCategoryNames(), ", "))
	}

	input := &texttospeechpb.SynthesisInput{InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text}}
	if strings.HasPrefix(strings.TrimSpace(req.Text), "<speak>") {
		input = &texttospeechpb.SynthesisInput{InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: req.Text}}
	}
	voiceParams := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: voice.LanguageCode,
		Name:         voice.Name,
		SsmlGender:   voice.Gender,
	}

	if len(req.Text) <= s.SyncByteLimit {
		return s.synthesizeOnline(ctx, req, input, voiceParams)
	}
	return s.synthesizeLong(ctx, req, input, voiceParams)
}

// synthesizeOnline performs a single online synthesis call and uploads the
// returned MP3 bytes.
func (s *SpeechService) synthesizeOnline(ctx context.Context, req SynthesisRequest, input *texttospeechpb.SynthesisInput, voice *texttospeechpb.VoiceSelectionParams) (cloud.Locator, error) {
	resp, err := s.API.Synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: input,
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  req.SpeakingRate,
			Pitch:         req.Pitch,
			VolumeGainDb:  req.VolumeGainDb,
		},
	})
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "text-to-speech synthesis failed")
	}

	dest := cloud.Locator{Bucket: s.Bucket, Object: joinObjectPath(s.Prefix, fmt.Sprintf("chirp_%s.mp3", uuid.New()))}
	if err := s.Store.Upload(ctx, dest, bytes.NewReader(resp.AudioContent), "audio/mpeg"); err != nil {
		return cloud.Locator{}, err
	}
	return dest, nil
}

// synthesizeLong submits a long-audio operation writing LINEAR16 PCM straight
// to the destination object and waits for it under the configured bound.
func (s *SpeechService) synthesizeLong(ctx context.Context, req SynthesisRequest, input *texttospeechpb.SynthesisInput, voice *texttospeechpb.VoiceSelectionParams) (cloud.Locator, error) {
	dest := cloud.Locator{Bucket: s.Bucket, Object: joinObjectPath(s.Prefix, fmt.Sprintf("long_%s.pcm", uuid.New()))}

	waitCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	op, err := s.API.SynthesizeLong(waitCtx, &texttospeechpb.SynthesizeLongAudioRequest{
		Parent: s.Parent,
		Input:  input,
		Voice:  voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
			SpeakingRate:  req.SpeakingRate,
			Pitch:         req.Pitch,
			VolumeGainDb:  req.VolumeGainDb,
		},
		OutputGcsUri: dest.String(),
	})
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "long-audio synthesis request failed")
	}

	if err := op.Wait(waitCtx); err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return cloud.Locator{}, model.WrapError(model.ErrTimeout, err,
				"long-audio synthesis timed out after %s for %s", s.Timeout, dest)
		}
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "long-audio synthesis failed for %s", dest)
	}
	return dest, nil
}

// joinObjectPath joins a prefix and a file name, collapsing duplicate
// separators so prefixes may be configured with or without a trailing slash.
func joinObjectPath(prefix, name string) string {
	if prefix == "" {
		return strings.TrimPrefix(name, "/")
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}
