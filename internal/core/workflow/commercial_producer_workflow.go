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
// combining various commands into coherent pipelines. This file composes the
// two stage workflows into the end-to-end producer: creative brief in,
// finished commercial out.
package workflow

import (
	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
)

// CommercialProducerWorkflow runs scene production followed by assembly over
// one shared context. Each stage finishes with its output piped into the
// input slot, so the artifact records from production arrive as the input of
// assembly without any glue.
type CommercialProducerWorkflow struct {
	cor.BaseCommand
	production *SceneProductionWorkflow
	assembly   *CommercialAssemblyWorkflow
}

// Execute runs the full production pipeline.
//
// Inputs:
//   - context: The chain of responsibility context for this execution. The
//     piped input must be the creative brief text; after execution the piped
//     input slot holds the finished commercial's locator.
func (w *CommercialProducerWorkflow) Execute(context cor.Context) {
	w.production.Execute(context)
	if context.HasErrors() {
		return
	}
	w.assembly.Execute(context)
}

// NewCommercialProducerPipeline is the constructor for
// CommercialProducerWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the agent model config to use for planning.
//   - numberOfWorkers: The size of the scene rendering worker pool.
//
// Outputs:
//   - *CommercialProducerWorkflow: A fully initialized workflow.
func NewCommercialProducerPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	numberOfWorkers int) *CommercialProducerWorkflow {

	return &CommercialProducerWorkflow{
		BaseCommand: *cor.NewBaseCommand("commercial-producer-pipeline"),
		production:  NewSceneProductionPipeline(config, serviceClients, agentModelName, numberOfWorkers),
		assembly:    NewCommercialAssemblyPipeline(config, serviceClients),
	}
}
