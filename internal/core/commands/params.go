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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file centralizes the
// well-known context parameter names that commands use to share state beyond
// the chain's default input/output piping.
package commands

// GetCommercialParameterName returns the context key holding the parsed
// commercial blueprint. Several commands after the parser need the blueprint
// even though it is no longer the piped value.
func GetCommercialParameterName() string {
	return "__COMMERCIAL__"
}

// GetSceneArtifactsParameterName returns the context key holding the ordered
// per-scene production artifacts.
func GetSceneArtifactsParameterName() string {
	return "__SCENE_ARTIFACTS__"
}

// GetMusicLocatorParameterName returns the context key holding the locator
// of the generated music score, when one exists.
func GetMusicLocatorParameterName() string {
	return "__MUSIC_LOCATOR__"
}

// GetTotalDurationParameterName returns the context key holding the summed
// length in seconds of the assembled commercial.
func GetTotalDurationParameterName() string {
	return "__TOTAL_SECONDS__"
}
