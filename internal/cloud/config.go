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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. The configuration is constructed once at process
// start and passed explicitly to every service; no wrapper reads environment
// defaults of its own. This removes the duplicated bucket names and model IDs
// that otherwise drift between call sites.
//
// Structs:
//   - Storage: Bucket name and the object-name prefixes for each artifact type.
//   - SynthesisModels: Model identifiers for speech, music, and video synthesis.
//   - Transcode: Region and polling policy for the Transcoder API.
//   - VertexAiLLMModel: Configuration for a generative model used by the
//     blueprint creator and the agent.
//   - PromptTemplates: Prompt text templates for the generative models.
//   - Config: The top-level aggregate.
//
// Functions:
//   - NewConfig: Constructor that initializes a Config with its maps allocated.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for
// GenAI models. Blueprint generation runs against trusted internal briefs, so
// the thresholds are non-restrictive.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Storage holds the bucket and the object-name prefixes under which each kind
// of production artifact is stored.
type Storage struct {
	Bucket       string `toml:"bucket"`        // The GCS bucket all artifacts live in.
	SpeechPrefix string `toml:"speech_prefix"` // Prefix for synthesized narration audio (e.g., "tts/").
	MusicPrefix  string `toml:"music_prefix"`  // Prefix for generated music (e.g., "music/").
	VideoPrefix  string `toml:"video_prefix"`  // Prefix for generated raw clips (e.g., "veo_scenes/").
	MuxPrefix    string `toml:"mux_prefix"`    // Prefix for muxed per-scene clips (e.g., "muxed/").
	FinalPrefix  string `toml:"final_prefix"`  // Prefix for assembled commercials (e.g., "commercials/").
	ImagePrefix  string `toml:"image_prefix"`  // Prefix for uploaded reference images (e.g., "agent_image_uploads/").
}

// SynthesisModels names the remote models used for each synthesis concern.
type SynthesisModels struct {
	MusicModel    string `toml:"music_model"`     // The music prediction model (e.g., "lyria-002").
	VideoModel    string `toml:"video_model"`     // The video generation model (e.g., "veo-2.0-generate-001").
	VideoRPS      int    `toml:"video_rps"`       // Rate limit for video generation requests per second.
	MusicEndpoint string `toml:"music_endpoint"`  // Optional override of the prediction endpoint base URL; empty means the regional aiplatform host.
	SpeechTimeout int    `toml:"speech_timeout"`  // Wait bound in seconds for long-audio synthesis operations.
	SyncByteLimit int    `toml:"sync_byte_limit"` // Inputs at or under this many bytes use synchronous speech synthesis.
}

// Transcode holds the region and polling policy for Transcoder API jobs.
type Transcode struct {
	Location            string `toml:"location"`              // The regional endpoint for Transcoder jobs; the service is regional.
	PollIntervalSeconds int    `toml:"poll_interval_seconds"` // Fixed interval between job status polls.
	MaxWaitSeconds      int    `toml:"max_wait_seconds"`      // Upper bound on the total wait; 0 means wait indefinitely.
	TTLDays             int    `toml:"ttl_days"`              // Job retention after completion, in days.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large
// language model used for blueprint generation or agent orchestration.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM (e.g., "application/json").
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// PromptTemplates holds the templates for the prompts sent to GenAI models.
type PromptTemplates struct {
	BlueprintPrompt string `toml:"blueprint"` // The template turning a creative brief into a Commercial blueprint.
	AgentPrompt     string `toml:"agent"`     // The system prompt for the tool-calling production agent.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string `toml:"name"`              // The name of the application.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location (default "us-central1").
		SceneWorkers    int    `toml:"scene_workers"`     // Size of the scene rendering worker pool; 1 renders scenes sequentially.
	} `toml:"application"`
	Storage         Storage                     `toml:"storage"`          // Artifact storage configuration.
	Models          SynthesisModels             `toml:"models"`           // Remote synthesis model configuration.
	Transcode       Transcode                   `toml:"transcode"`        // Transcoder job configuration.
	PromptTemplates PromptTemplates             `toml:"prompt_templates"` // Prompt templates configuration.
	AgentModels     map[string]VertexAiLLMModel `toml:"agent_models"`     // Vertex AI LLM models keyed by a logical name (e.g., "blueprint").
}

// NewConfig is a constructor function that creates a new, initialized Config
// instance with its map fields allocated and the defaults the original call
// sites assumed.
//
// Outputs:
//   - *Config: A pointer to a new Config struct.
func NewConfig() *Config {
	c := &Config{
		AgentModels: make(map[string]VertexAiLLMModel),
	}
	c.Application.GoogleLocation = "us-central1"
	c.Application.SceneWorkers = 1
	c.Models.VideoModel = "veo-2.0-generate-001"
	c.Models.MusicModel = "lyria-002"
	c.Models.VideoRPS = 1
	c.Models.SpeechTimeout = 300
	c.Models.SyncByteLimit = 4000
	c.Transcode.Location = "us-central1"
	c.Transcode.PollIntervalSeconds = 15
	c.Transcode.TTLDays = 1
	return c
}
