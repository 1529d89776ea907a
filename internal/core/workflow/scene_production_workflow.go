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
// the scene production workflow: from a creative brief to a set of narrated
// scene clips in Cloud Storage.
package workflow

import (
	"text/template"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// BlueprintOutputParamName is the context key where the parsed blueprint is
// stored for callers that want it alongside the piped artifacts.
const BlueprintOutputParamName = "__blueprint_output__"

// SceneProductionWorkflow turns a creative brief into rendered scenes. It is
// structured as a Chain of Responsibility (cor.Chain) whose piped input is
// the brief text and whose piped output is the ordered list of
// per-scene artifact records.
type SceneProductionWorkflow struct {
	cor.BaseCommand
	config            *cloud.Config
	genaiModel        *cloud.QuotaAwareGenerativeAIModel
	speech            *services.SpeechService
	duration          *services.DurationService
	video             *services.VideoService
	transcode         *services.TranscodeService
	numberOfWorkers   int
	blueprintTemplate *template.Template
	chain             cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the scene production workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (w *SceneProductionWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this workflow.
func (w *SceneProductionWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Plan the commercial. The generative model turns the brief into
	// a JSON blueprint with a title, a music direction, and a scene list.
	out.AddCommand(commands.NewBlueprintCreator("create-blueprint", w.genaiModel, w.blueprintTemplate))

	// Step 2: Parse and validate the blueprint JSON into a typed struct.
	// Scenes are reordered and renumbered, defaults applied.
	out.AddCommand(commands.NewBlueprintJsonToStruct("parse-blueprint", BlueprintOutputParamName))

	// Step 3: Render every scene concurrently. Each worker synthesizes
	// narration, probes its length, generates the clip, and muxes the two.
	out.AddCommand(commands.NewSceneProducer(
		"produce-scenes", w.speech, w.duration, w.video, w.transcode, w.numberOfWorkers))

	w.chain = out
}

// NewSceneProductionPipeline is the constructor for SceneProductionWorkflow.
// It builds the services the commands depend on, compiles the planning
// prompt template, and initializes the command chain.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the agent model config to use for planning.
//   - numberOfWorkers: The size of the scene rendering worker pool.
//
// Outputs:
//   - *SceneProductionWorkflow: A fully initialized workflow.
func NewSceneProductionPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	numberOfWorkers int) *SceneProductionWorkflow {

	blueprintTemplate, err := template.New("blueprint-template").Parse(config.PromptTemplates.BlueprintPrompt)
	if err != nil {
		panic(err) // The app cannot run without valid templates.
	}

	pipeline := &SceneProductionWorkflow{
		BaseCommand:       *cor.NewBaseCommand("scene-production-pipeline"),
		config:            config,
		genaiModel:        serviceClients.AgentModels[agentModelName],
		speech:            services.NewSpeechService(serviceClients, config),
		duration:          services.NewDurationService(services.NewGCSBlobStore(serviceClients.StorageClient)),
		video:             services.NewVideoService(serviceClients, config),
		transcode:         services.NewTranscodeService(serviceClients, config),
		numberOfWorkers:   numberOfWorkers,
		blueprintTemplate: blueprintTemplate,
	}
	pipeline.initializeChain()
	return pipeline
}
