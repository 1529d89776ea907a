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

// Package model defines the core data structures for the application.
// This file, `blueprint.go`, contains the structs that describe a commercial
// production blueprint: the structured, scene-by-scene plan that the
// generative model produces from an unstructured creative brief, and that the
// production workflows then execute. These objects live purely in memory;
// the media artifacts they give rise to are owned by Cloud Storage and the
// remote synthesis services.
package model

// Scene is a single scene of a commercial blueprint. Each scene carries the
// inputs for every synthesis step the production workflow performs: the
// narration text for text-to-speech, the prompt for video generation, and the
// on-screen text overlay.
type Scene struct {
	SequenceNumber  int     `json:"sequence_number"`  // The 1-based position of the scene within the commercial.
	Narration       string  `json:"narration"`        // The narration input for the text-to-speech service. May contain pause markers ("...").
	VideoPrompt     string  `json:"video_prompt"`     // The generative video prompt describing the visual content.
	TextOverlay     string  `json:"text_overlay"`     // On-screen overlay text for the scene, if any.
	VoiceCategory   string  `json:"voice_category"`   // One of the fixed voice categories understood by the speech service.
	SpeakingRate    float64 `json:"speaking_rate"`    // Speech rate, 1.0 is normal. The agent may adjust this between 0.8 and 1.3 to fit the scene.
	DurationSeconds int     `json:"duration_seconds"` // Target clip length in seconds. Never more than 8 for the current video model.
}

// Commercial is the full production blueprint for one commercial: an ordered
// list of scenes plus the prompt for the background musical score.
type Commercial struct {
	Title       string   `json:"title"`        // A short working title for the commercial.
	Brand       string   `json:"brand"`        // The brand or product the commercial is for.
	MusicPrompt string   `json:"music_prompt"` // The prompt for the music generation model covering the whole commercial.
	MusicVolume float64  `json:"music_volume"` // Background music volume as a linear fraction (0.0 to 1.0) applied during the final mix.
	Scenes      []*Scene `json:"scenes"`       // The ordered scenes. Production runs them sequentially.
}

// SceneArtifacts records the storage locations produced while rendering a
// single scene. Workflows accumulate these so the assembly stage can
// concatenate the muxed clips and later remove the intermediates.
type SceneArtifacts struct {
	SequenceNumber int    // The scene this belongs to.
	NarrationURI   string // Locator of the synthesized narration audio.
	AudioSeconds   float64
	ClipURI        string // Locator of the raw generated clip, before audio muxing.
	MuxedURI       string // Locator of the clip with narration muxed in.
}
