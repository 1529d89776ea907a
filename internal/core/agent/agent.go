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

// Package agent exposes the production services to a generative model as
// callable tools. Where the workflows execute a fixed pipeline, the agent
// lets the model decide the sequence at runtime: it reads the production
// system prompt, receives a creative brief, and drives narration synthesis,
// clip generation, muxing, and assembly through function calls.
//
// Logic Flow:
//  1. The brief is sent to the model together with the tool declarations.
//  2. Each response is scanned for function calls. Every call is dispatched
//     to the matching service and its result (or error text) is fed back as
//     a function response.
//  3. The loop repeats until the model answers with plain text or the round
//     budget is exhausted. The budget keeps a confused model from spinning
//     against paid APIs forever.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"google.golang.org/genai"
)

// maxToolRounds bounds how many model turns a single production run may take.
const maxToolRounds = 64

// Toolset bundles the production services the agent exposes as tools. It is
// a separate type so the dispatch surface can be exercised without a model
// in the loop.
type Toolset struct {
	Speech    *services.SpeechService    // Narration synthesis.
	Music     *services.MusicService     // Score generation.
	Video     *services.VideoService     // Clip generation.
	Transcode *services.TranscodeService // Mux and concat jobs.
	Duration  *services.DurationService  // Media duration probes.
}

// NewToolset wires every production service from the shared clients and
// config.
func NewToolset(serviceClients *cloud.ServiceClients, config *cloud.Config) *Toolset {
	return &Toolset{
		Speech:    services.NewSpeechService(serviceClients, config),
		Music:     services.NewMusicService(serviceClients, config),
		Video:     services.NewVideoService(serviceClients, config),
		Transcode: services.NewTranscodeService(serviceClients, config),
		Duration:  services.NewDurationService(services.NewGCSBlobStore(serviceClients.StorageClient)),
	}
}

// Agent drives the production services through a tool-calling model.
type Agent struct {
	models    *genai.Models
	modelName string
	config    *genai.GenerateContentConfig
	tools     *Toolset
}

// NewAgent is the constructor for the Agent.
//
// Inputs:
//   - config: The application's overall configuration. The agent's system
//     prompt comes from the prompt templates and its model parameters from
//     the named agent model config.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the agent model config to use.
//
// Outputs:
//   - *Agent: A fully initialized agent.
func NewAgent(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *Agent {

	modelConfig := config.AgentModels[agentModelName]

	out := &Agent{
		models:    serviceClients.GenAIClient.Models,
		modelName: modelConfig.Model,
		tools:     NewToolset(serviceClients, config),
	}

	out.config = &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(modelConfig.Temperature),
		TopP:           genai.Ptr(modelConfig.TopP),
		SafetySettings: cloud.DefaultSafetySettings,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: config.PromptTemplates.AgentPrompt}},
		},
		Tools: []*genai.Tool{{FunctionDeclarations: toolDeclarations()}},
	}
	return out
}

// Produce runs one agent session over the creative brief and returns the
// model's final text answer, which by the production prompt's contract names
// the finished commercial's location.
//
// Inputs:
//   - ctx: The context for the session. Cancellation stops the loop between
//     rounds and aborts the in-flight service call.
//   - brief: The creative brief for the commercial.
//
// Outputs:
//   - string: The model's closing message.
//   - error: RemoteCallFailure for model errors, Unexpected when the round
//     budget is exhausted before the model concludes.
func (a *Agent) Produce(ctx context.Context, brief string) (string, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: brief}}},
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.models.GenerateContent(ctx, a.modelName, contents, a.config)
		if err != nil {
			return "", model.WrapError(model.ErrRemoteCall, err, "agent model call failed")
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", model.NewError(model.ErrRemoteCall, "agent model returned an empty response")
		}

		answer := resp.Candidates[0].Content
		contents = append(contents, answer)

		calls := functionCalls(answer)
		if len(calls) == 0 {
			return collectText(answer), nil
		}

		responses := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			slog.Info("agent tool call", "tool", call.Name)
			responses = append(responses, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: a.tools.Dispatch(ctx, call.Name, call.Args),
				},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responses})
	}

	return "", model.NewError(model.ErrUnexpected, "agent exceeded %d tool rounds without concluding", maxToolRounds)
}

// Dispatch routes one function call to its service. Failures are returned to
// the model as an error field rather than aborting the session; the model
// decides whether to retry, work around, or give up.
func (t *Toolset) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	result, err := t.invoke(ctx, name, args)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"result": result}
}

func (t *Toolset) invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "text_to_speech":
		loc, err := t.Speech.Synthesize(ctx, services.SynthesisRequest{
			Text:          argString(args, "text"),
			VoiceCategory: argString(args, "voice_category"),
			SpeakingRate:  argFloat(args, "speaking_rate"),
			Pitch:         argFloat(args, "pitch"),
		})
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "generate_music":
		loc, err := t.Music.Generate(ctx, argString(args, "prompt"), argString(args, "negative_prompt"))
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "generate_video":
		req := services.ClipRequest{
			Prompt:          argString(args, "prompt"),
			DurationSeconds: int32(argFloat(args, "duration_seconds")),
		}
		if uri := argString(args, "image_uri"); uri != "" {
			image, err := cloud.ParseLocator(uri)
			if err != nil {
				return nil, err
			}
			req.Image = &image
			req.ImageMIMEType = argString(args, "image_mime_type")
		}
		loc, err := t.Video.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "mux_audio":
		video, audio, err := argLocatorPair(args, "video_uri", "audio_uri")
		if err != nil {
			return nil, err
		}
		loc, err := t.Transcode.MuxNarration(ctx, video, audio, argFloat(args, "end_offset"))
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "mux_music":
		video, music, err := argLocatorPair(args, "video_uri", "music_uri")
		if err != nil {
			return nil, err
		}
		loc, err := t.Transcode.MuxMusic(ctx, video, music, argFloat(args, "volume"), argFloat(args, "video_duration"))
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "join_videos":
		uris, ok := args["video_uris"].([]any)
		if !ok {
			return nil, model.NewError(model.ErrInvalidInput, "join_videos requires a video_uris array")
		}
		rawDurations, ok := args["durations"].([]any)
		if !ok || len(rawDurations) != len(uris) {
			return nil, model.NewError(model.ErrInvalidInput, "join_videos requires a durations array parallel to video_uris")
		}
		clips := make([]cloud.Locator, 0, len(uris))
		durations := make([]float64, 0, len(uris))
		for i, raw := range uris {
			uri, _ := raw.(string)
			loc, err := cloud.ParseLocator(uri)
			if err != nil {
				return nil, err
			}
			seconds, _ := rawDurations[i].(float64)
			clips = append(clips, loc)
			durations = append(durations, seconds)
		}
		loc, err := t.Transcode.Concat(ctx, clips, durations)
		if err != nil {
			return nil, err
		}
		return loc.String(), nil

	case "video_duration":
		loc, err := cloud.ParseLocator(argString(args, "uri"))
		if err != nil {
			return nil, err
		}
		return t.Duration.ProbeMP4(ctx, loc)

	case "audio_duration":
		loc, err := cloud.ParseLocator(argString(args, "uri"))
		if err != nil {
			return nil, err
		}
		return t.Duration.ProbeAudio(ctx, loc)

	case "public_url":
		loc, err := cloud.ParseLocator(argString(args, "uri"))
		if err != nil {
			return nil, err
		}
		url, err := loc.PublicURL()
		if err != nil {
			return nil, err
		}
		return url, nil

	default:
		return nil, model.NewError(model.ErrInvalidInput, "unknown tool %q", name)
	}
}

// functionCalls collects the function call parts of a model response.
func functionCalls(content *genai.Content) []*genai.FunctionCall {
	calls := make([]*genai.FunctionCall, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// collectText concatenates the text parts of a model response.
func collectText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argFloat(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

func argLocatorPair(args map[string]any, firstKey, secondKey string) (cloud.Locator, cloud.Locator, error) {
	first, err := cloud.ParseLocator(argString(args, firstKey))
	if err != nil {
		return cloud.Locator{}, cloud.Locator{}, err
	}
	second, err := cloud.ParseLocator(argString(args, secondKey))
	if err != nil {
		return cloud.Locator{}, cloud.Locator{}, err
	}
	return first, second, nil
}

// toolDeclarations describes every production service to the model. The
// descriptions are part of the prompt surface: the model plans with them.
func toolDeclarations() []*genai.FunctionDeclaration {
	gcsURI := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return []*genai.FunctionDeclaration{
		{
			Name:        "text_to_speech",
			Description: fmt.Sprintf("Synthesizes narration audio and stores it in Cloud Storage. Valid voice categories: %s.", strings.Join(services.VoiceCategoryNames(), ", ")),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":           {Type: genai.TypeString, Description: "The narration text. Use '...' for short pauses."},
					"voice_category": {Type: genai.TypeString, Description: "The voice category to narrate with."},
					"speaking_rate":  {Type: genai.TypeNumber, Description: "Speed of speech, 1.0 is normal. Use 0.8 to 1.3."},
					"pitch":          {Type: genai.TypeNumber, Description: "Pitch adjustment, 0.0 is normal."},
				},
				Required: []string{"text", "voice_category"},
			},
		},
		{
			Name:        "generate_music",
			Description: "Generates an instrumental music score from a text prompt and stores it as a WAV in Cloud Storage.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"prompt":          {Type: genai.TypeString, Description: "Description of the desired score."},
					"negative_prompt": {Type: genai.TypeString, Description: "Elements the score must avoid."},
				},
				Required: []string{"prompt"},
			},
		},
		{
			Name:        "generate_video",
			Description: "Generates a video clip from a text prompt, optionally conditioned on a reference image, and stores it in Cloud Storage.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"prompt":           {Type: genai.TypeString, Description: "Visual description of the clip."},
					"duration_seconds": {Type: genai.TypeInteger, Description: "Clip length in seconds, 5 to 8."},
					"image_uri":        gcsURI("Optional gs:// URI of a reference image."),
					"image_mime_type":  {Type: genai.TypeString, Description: "MIME type of the reference image, required with image_uri."},
				},
				Required: []string{"prompt", "duration_seconds"},
			},
		},
		{
			Name:        "mux_audio",
			Description: "Lays narration audio over a silent video clip, trimming the output to end_offset seconds.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"video_uri":  gcsURI("gs:// URI of the silent video clip."),
					"audio_uri":  gcsURI("gs:// URI of the narration audio."),
					"end_offset": {Type: genai.TypeNumber, Description: "Output length in seconds, the narration's duration."},
				},
				Required: []string{"video_uri", "audio_uri", "end_offset"},
			},
		},
		{
			Name:        "mux_music",
			Description: "Blends a music score under a narrated video at the given volume.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"video_uri":      gcsURI("gs:// URI of the narrated video."),
					"music_uri":      gcsURI("gs:// URI of the music score."),
					"volume":         {Type: genai.TypeNumber, Description: "Linear music volume between 0.0 and 1.0."},
					"video_duration": {Type: genai.TypeNumber, Description: "Length of the video in seconds."},
				},
				Required: []string{"video_uri", "music_uri", "volume", "video_duration"},
			},
		},
		{
			Name:        "join_videos",
			Description: "Concatenates video clips in order into a single video.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"video_uris": {Type: genai.TypeArray, Items: gcsURI("gs:// URI of a clip."), Description: "The clips in presentation order."},
					"durations":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}, Description: "Per-clip lengths in seconds, parallel to video_uris."},
				},
				Required: []string{"video_uris", "durations"},
			},
		},
		{
			Name:        "video_duration",
			Description: "Returns the duration in seconds of an MP4 video in Cloud Storage.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"uri": gcsURI("gs:// URI of the video.")},
				Required:   []string{"uri"},
			},
		},
		{
			Name:        "audio_duration",
			Description: "Returns the duration in seconds of an audio object (mp3, wav, or raw pcm) in Cloud Storage.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"uri": gcsURI("gs:// URI of the audio.")},
				Required:   []string{"uri"},
			},
		},
		{
			Name:        "public_url",
			Description: "Converts a gs:// URI into its public HTTPS URL.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"uri": gcsURI("The gs:// URI to convert.")},
				Required:   []string{"uri"},
			},
		},
	}
}
