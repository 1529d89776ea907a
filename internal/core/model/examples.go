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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// These example objects are used for "few-shot" prompting with the
// generative AI models. By providing a concrete example of the desired JSON
// output structure within the prompt itself, we guide the AI to return data
// that is consistent, correctly formatted, and easily parsable.
package model

// GetExampleScene creates a sample Scene object. It is embedded in the
// blueprint prompt so the model sees the expected JSON shape for a single
// scene, including the narration pacing markers and the 8-second clip bound.
//
// Outputs:
//   - *Scene: A pointer to a hardcoded Scene object.
func GetExampleScene() *Scene {
	out := &Scene{
		SequenceNumber:  1,
		Narration:       "Some mornings ask a lot of you... Meet the one thing that asks nothing at all.",
		VideoPrompt:     "A slow dolly-in on a sunlit kitchen counter at dawn, steam rising from a ceramic mug, warm golden light, shallow depth of field, cinematic.",
		TextOverlay:     "Mornings, made simple",
		VoiceCategory:   "chirp_female_aoede",
		SpeakingRate:    1.0,
		DurationSeconds: 7,
	}
	return out
}

// GetExampleCommercial creates a sample Commercial blueprint used as the
// few-shot example for the blueprint creator prompt and as fixture data for
// workflow tests.
//
// Outputs:
//   - *Commercial: A pointer to a hardcoded Commercial object.
func GetExampleCommercial() *Commercial {
	out := &Commercial{
		Title:       "Morning Ritual",
		Brand:       "Dawnbrew Coffee",
		MusicPrompt: "A warm, optimistic acoustic piece with gentle fingerpicked guitar and soft piano, building slowly to a hopeful finish.",
		MusicVolume: 0.3,
		Scenes:      []*Scene{GetExampleScene()},
	}
	return out
}
