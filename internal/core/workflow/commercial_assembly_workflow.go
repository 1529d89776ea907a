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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the assembly workflow: rendered scenes in, one finished commercial out.
package workflow

import (
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// CommercialAssemblyWorkflow joins the rendered scenes, scores them, and
// cleans up the intermediates. Its piped input is the ordered list of
// per-scene artifact records (the output of SceneProductionWorkflow) and its
// piped output is the locator of the finished commercial. The workflow also
// expects the parsed blueprint under its well-known context parameter, where
// the parsing command left it.
type CommercialAssemblyWorkflow struct {
	cor.BaseCommand
	music     *services.MusicService
	transcode *services.TranscodeService
	store     services.BlobStore
	chain     cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the assembly workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (w *CommercialAssemblyWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this workflow.
func (w *CommercialAssemblyWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Render the background score from the blueprint's music prompt.
	// Blueprints without a music prompt skip straight through.
	out.AddCommand(commands.NewMusicScore("generate-music-score", w.music))

	// Step 2: Concatenate the muxed scene clips in blueprint order into one
	// continuous video.
	out.AddCommand(commands.NewClipConcat("concatenate-scenes", w.transcode))

	// Step 3: Blend the score under the assembled video at the blueprint's
	// volume. Without a score the assembled video passes through as final.
	out.AddCommand(commands.NewMusicMux("blend-music-score", w.transcode))

	// Step 4: Delete the per-scene intermediates and the raw score. Cleanup
	// failures are logged, never fatal.
	out.AddCommand(commands.NewArtifactCleanup("cleanup-intermediates", w.store))

	w.chain = out
}

// NewCommercialAssemblyPipeline is the constructor for
// CommercialAssemblyWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//
// Outputs:
//   - *CommercialAssemblyWorkflow: A fully initialized workflow.
func NewCommercialAssemblyPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients) *CommercialAssemblyWorkflow {

	pipeline := &CommercialAssemblyWorkflow{
		BaseCommand: *cor.NewBaseCommand("commercial-assembly-pipeline"),
		music:       services.NewMusicService(serviceClients, config),
		transcode:   services.NewTranscodeService(serviceClients, config),
		store:       services.NewGCSBlobStore(serviceClients.StorageClient),
	}
	pipeline.initializeChain()
	return pipeline
}
