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

// Package test provides utility functions and mock data to support the application's
// test suite. It helps in setting up a consistent test environment, loading
// test-specific configurations, and providing sample data for workflows and services.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
)

// StateManager acts as a simple in-memory cache for the application configuration
// during test runs. This prevents the need to reload configuration files for every
// test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of StateManager,
// ensuring that the configuration is loaded only once per test run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not nil.
// If an error exists, it fails the test immediately by calling t.Errorf.
// This is a convenience function to reduce boilerplate error-checking code in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestBrief returns a short creative brief of the kind a client would post
// to the commercial production endpoint. It is used to exercise the blueprint
// creation stage without inventing briefs inline in every test.
//
// Returns:
//   - A string containing an unstructured creative brief.
func GetTestBrief() string {
	return "Create a 30 second commercial for Solara, a solar powered camping " +
		"lantern. The tone should be warm and adventurous, aimed at weekend " +
		"hikers. End on the tagline \"Light that follows the sun.\""
}

// GetTestBlueprintJSON returns a hardcoded JSON document shaped like the
// blueprint the generative model emits for a brief. It parses cleanly into a
// model.Commercial and is used to test the blueprint validation stage and the
// downstream production commands without calling the model.
//
// Returns:
//   - A string containing the JSON payload of a two scene blueprint.
func GetTestBlueprintJSON() string {
	return `{
  "title": "Light That Follows The Sun",
  "brand": "Solara",
  "music_prompt": "Warm acoustic guitar with light percussion, hopeful and steady",
  "music_volume": 0.3,
  "scenes": [
    {
      "sequence_number": 1,
      "narration": "The trail ends... but the evening is just beginning.",
      "video_prompt": "A hiker sets down a backpack at a forest campsite at dusk, golden light through the trees",
      "text_overlay": "",
      "voice_category": "chirp_female_aoede",
      "speaking_rate": 1.0,
      "duration_seconds": 6
    },
    {
      "sequence_number": 2,
      "narration": "Solara. Light that follows the sun.",
      "video_prompt": "Close up of a glowing lantern on a picnic table, warm light on smiling faces, stars overhead",
      "text_overlay": "Light that follows the sun.",
      "voice_category": "male_low",
      "speaking_rate": 0.9,
      "duration_seconds": 5
    }
  ]
}`
}

// SetupOS configures the necessary environment variables that the configuration
// loader (`cloud.LoadConfig`) depends on. By setting these variables, we can
// direct the loader to use the test-specific configuration files (e.g.,
// `configs/.env.test.toml`) instead of production or development ones.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the runtime environment identifier to "test". This causes the loader
	// to look for a file named ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
// This is the primary way tests should retrieve their configuration.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	// Check if the config is already cached.
	if state.config == nil {
		// If not cached, set up the OS environment for the test configuration.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the TOML files into the struct.
		// `LoadConfig` handles the hierarchical loading (base file + test override).
		cloud.LoadConfig(&config)
		// Cache the loaded config in our state manager.
		state.config = config
	}
	// Return the cached configuration.
	return state.config
}
