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

// Package cloud provides components for interacting with Google Cloud
// services. This file initializes and holds all the client objects the
// application needs: Cloud Storage, Text-to-Speech (online and long-audio),
// the Transcoder API, the GenAI client, and the default-credential token
// source used for the raw music prediction endpoint. It acts as a dependency
// injection container: one ServiceClients struct is constructed at startup
// and passed to every service, so no wrapper builds ad-hoc clients per call.
//
// Structs:
//   - ServiceClients: A container holding all initialized Google Cloud
//     service clients and model wrappers.
//
// Functions:
//   - Close: Gracefully shuts down all client connections.
//   - NewCloudServiceClients: Factory creating and configuring all clients
//     from the application configuration.
package cloud

import (
	"context"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	transcoder "cloud.google.com/go/video/transcoder/apiv1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"
)

// ServiceClients is a central container for all clients that interact with
// external Google Cloud services. The struct is built once at startup and
// shared across the application.
type ServiceClients struct {
	StorageClient    *storage.Client                              // Client for Google Cloud Storage (GCS).
	SpeechClient     *texttospeech.Client                         // Client for online text-to-speech synthesis.
	LongAudioClient  *texttospeech.TextToSpeechLongAudioSynthesizeClient // Client for long-audio synthesis operations.
	TranscoderClient *transcoder.Client                           // Client for the Transcoder API.
	GenAIClient      *genai.Client                                // Client for Vertex AI generative models.
	TokenSource      oauth2.TokenSource                           // Default-credential token source for raw HTTP prediction calls.
	HTTPClient       *http.Client                                 // HTTP client used for prediction endpoints without a generated client.
	VideoModel       *QuotaAwareVideoModel                        // Rate-limited Veo model wrapper.
	AgentModels      map[string]*QuotaAwareGenerativeAIModel      // Configured LLM wrappers keyed by logical name from the config.
}

// Close is a utility method to gracefully shut down all the active client
// connections. Useful in tests and for controlled shutdowns.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.SpeechClient.Close()
	_ = c.LongAudioClient.Close()
	_ = c.TranscoderClient.Close()
}

// NewCloudServiceClients initializes all required Google Cloud service
// clients based on the provided configuration. It is the single entry point
// for setting up the application's external dependencies.
//
// Inputs:
//   - ctx: The root context for the application, managing client lifecycles.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The fully initialized container.
//   - error: An error if any client fails to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	tts, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	longAudio, err := texttospeech.NewTextToSpeechLongAudioSynthesizeClient(ctx)
	if err != nil {
		return nil, err
	}

	tc, err := transcoder.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		slog.Error("error creating genai client", "error", err)
		return nil, err
	}

	// Default application credentials back the raw prediction endpoint used
	// for music generation, which has no generated client.
	ts, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, err
	}

	// Build the rate-limited LLM wrappers declared in the configuration.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]
		genConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		agentModels[amKey] = NewQuotaAwareModel(genConfig, values.Model, gc.Models, values.RateLimit)
	}

	cloud = &ServiceClients{
		StorageClient:    sc,
		SpeechClient:     tts,
		LongAudioClient:  longAudio,
		TranscoderClient: tc,
		GenAIClient:      gc,
		TokenSource:      ts,
		HTTPClient:       http.DefaultClient,
		VideoModel:       NewQuotaAwareVideoModel(config.Models.VideoModel, gc.Models, gc.Operations, config.Models.VideoRPS),
		AgentModels:      agentModels,
	}

	return cloud, err
}
