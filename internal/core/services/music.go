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

// This file defines the MusicService, which generates an instrumental score
// from a text prompt through the Vertex AI prediction endpoint. The music
// model has no SDK surface, so the service speaks the raw predict protocol:
// an authenticated JSON POST whose response carries the WAV bytes base64
// encoded in the first prediction.
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"golang.org/x/oauth2"
)

// MusicService generates instrumental WAV scores and stores them in Cloud
// Storage.
type MusicService struct {
	HTTPClient  *http.Client       // Client for the predict call.
	TokenSource oauth2.TokenSource // Source of bearer tokens for Vertex AI.
	Store       BlobStore          // Destination artifact store.
	Endpoint    string             // Fully resolved ":predict" URL.
	Bucket      string             // The artifact bucket.
	Prefix      string             // Object-name prefix for music artifacts (e.g., "music/").
}

// NewMusicService wires a MusicService from the shared clients and config.
// When the config does not pin an endpoint it is derived from the project,
// location, and music model name.
func NewMusicService(clients *cloud.ServiceClients, config *cloud.Config) *MusicService {
	endpoint := config.Models.MusicEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
			config.Application.GoogleLocation,
			config.Application.GoogleProjectId,
			config.Application.GoogleLocation,
			config.Models.MusicModel)
	}
	return &MusicService{
		HTTPClient:  clients.HTTPClient,
		TokenSource: clients.TokenSource,
		Store:       NewGCSBlobStore(clients.StorageClient),
		Endpoint:    endpoint,
		Bucket:      config.Storage.Bucket,
		Prefix:      config.Storage.MusicPrefix,
	}
}

type musicInstance struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type musicPredictRequest struct {
	Instances  []musicInstance `json:"instances"`
	Parameters map[string]any  `json:"parameters"`
}

type musicPredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
}

// Generate produces a WAV score for the prompt and returns its locator
// ("<prefix>lyria_<uuid>.wav").
//
// Inputs:
//   - ctx: The context for the request.
//   - prompt: The positive description of the desired score.
//   - negativePrompt: Elements the score must avoid; may be empty.
//
// Outputs:
//   - cloud.Locator: The locator of the stored WAV.
//   - error: InvalidInput for an empty prompt, RemoteCallFailure for auth,
//     transport, non-200, or malformed-response conditions.
func (m *MusicService) Generate(ctx context.Context, prompt, negativePrompt string) (cloud.Locator, error) {
	if strings.TrimSpace(prompt) == "" {
		return cloud.Locator{}, model.NewError(model.ErrInvalidInput, "music prompt is required")
	}

	token, err := m.TokenSource.Token()
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "failed to obtain an access token for music generation")
	}

	body, err := json.Marshal(musicPredictRequest{
		Instances:  []musicInstance{{Prompt: prompt, NegativePrompt: negativePrompt}},
		Parameters: map[string]any{},
	})
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrUnexpected, err, "failed to encode the music request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrUnexpected, err, "failed to build the music request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "music prediction request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "failed to read the music prediction response")
	}
	if resp.StatusCode != http.StatusOK {
		return cloud.Locator{}, model.NewError(model.ErrRemoteCall,
			"music prediction returned status %d: %s", resp.StatusCode, truncateForError(payload))
	}

	var decoded musicPredictResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "music prediction returned malformed JSON")
	}
	if len(decoded.Predictions) == 0 || decoded.Predictions[0].BytesBase64Encoded == "" {
		return cloud.Locator{}, model.NewError(model.ErrRemoteCall, "music prediction returned no audio")
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return cloud.Locator{}, model.WrapError(model.ErrRemoteCall, err, "music prediction returned invalid base64 audio")
	}

	dest := cloud.Locator{Bucket: m.Bucket, Object: joinObjectPath(m.Prefix, fmt.Sprintf("lyria_%s.wav", uuid.New()))}
	if err := m.Store.Upload(ctx, dest, bytes.NewReader(audio), "audio/wav"); err != nil {
		return cloud.Locator{}, err
	}
	return dest, nil
}

// truncateForError bounds a response body so it can be embedded in an error
// message without flooding the logs.
func truncateForError(b []byte) string {
	const max = 512
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
