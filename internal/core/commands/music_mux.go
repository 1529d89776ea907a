// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// final mix stage: blending the background score under the assembled
// commercial.
//
// Logic Flow:
// The command receives the assembled video's locator as its piped input and
// looks up the score locator left behind by the `MusicScore` command. When
// no score exists (the blueprint had no music prompt, or the blueprint set
// the volume to zero with no prompt) the assembled video passes through as
// the final output. Otherwise a mux job blends the score at the blueprint's
// volume while narration passes at unity gain.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// MusicMux is a command that blends the generated score under the assembled
// commercial.
type MusicMux struct {
	cor.BaseCommand
	transcode *services.TranscodeService // Mux jobs.
}

// NewMusicMux is the constructor for the MusicMux command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - transcode: The transcode service used for the blending job.
//
// Outputs:
//   - *MusicMux: A pointer to the newly instantiated command.
func NewMusicMux(name string, transcode *services.TranscodeService) *MusicMux {
	return &MusicMux{BaseCommand: *cor.NewBaseCommand(name), transcode: transcode}
}

// Execute blends the score, or forwards the assembled video when there is
// no score to blend.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (m *MusicMux) Execute(context cor.Context) {
	assembled := context.Get(m.GetInputParam()).(cloud.Locator)

	scoreValue := context.Get(GetMusicLocatorParameterName())
	if scoreValue == nil {
		m.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(m.GetOutputParam(), assembled)
		context.Add(cor.CtxOut, assembled)
		return
	}
	score := scoreValue.(cloud.Locator)

	commercial := context.Get(GetCommercialParameterName()).(*model.Commercial)
	totalSeconds := context.Get(GetTotalDurationParameterName()).(float64)

	final, err := m.transcode.MuxMusic(context.GetContext(), assembled, score, commercial.MusicVolume, totalSeconds)
	if err != nil {
		m.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(m.GetName(), fmt.Errorf("music blending failed: %w", err))
		return
	}

	m.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(m.GetOutputParam(), final)
	context.Add(cor.CtxOut, final)
}
