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

package main

import (
	"context"
	"log"
	"os"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/agent"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/workflow"
)

// agentModelKey names the agent model config in [agent_models].
const agentModelKey = "agent"

// StateManager holds the shared components for the application.
type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	producer      *workflow.CommercialProducerWorkflow
	sceneRenderer *commands.SceneProducer
	imageService  *services.ImageService
	agentProducer *agent.Agent
}

var state = &StateManager{}

// SetupOS points the configuration loader at the local config directory.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig loads the application configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a default cloud config
		config := cloud.NewConfig()
		// Load it from the TOML files
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds the service clients, the production workflow, and the
// request-serving services.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.producer = workflow.NewCommercialProducerPipeline(
		config, cloudClients, "blueprint", config.Application.SceneWorkers)
	state.sceneRenderer = commands.NewSceneProducer(
		"render-scene",
		services.NewSpeechService(cloudClients, config),
		services.NewDurationService(services.NewGCSBlobStore(cloudClients.StorageClient)),
		services.NewVideoService(cloudClients, config),
		services.NewTranscodeService(cloudClients, config),
		1)
	state.imageService = services.NewImageService(cloudClients, config)

	// The tool-calling agent is optional: it only comes up when its model is
	// configured, so stripped-down deployments can run the fixed pipeline alone.
	if _, ok := config.AgentModels[agentModelKey]; ok {
		state.agentProducer = agent.NewAgent(config, cloudClients, agentModelKey)
	}
}
