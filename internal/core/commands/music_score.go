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
// command that generates the commercial's background score.
//
// Logic Flow:
// The score covers the whole commercial, so it is rendered once, independent
// of scene production, from the blueprint's music prompt. A blueprint without
// a music prompt simply skips this step; the final mix stage then leaves the
// narration-only audio untouched. The piped value passes through unchanged
// so the command can sit anywhere between the parser and the final mix.
package commands

import (
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// MusicScore is a command that renders the blueprint's background score.
type MusicScore struct {
	cor.BaseCommand
	music *services.MusicService // Score generation.
}

// NewMusicScore is the constructor for the MusicScore command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - music: The music generation service.
//
// Outputs:
//   - *MusicScore: A pointer to the newly instantiated command.
func NewMusicScore(name string, music *services.MusicService) *MusicScore {
	return &MusicScore{BaseCommand: *cor.NewBaseCommand(name), music: music}
}

// IsExecutable requires the parsed blueprint to be present in the context.
func (m *MusicScore) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetCommercialParameterName()) != nil
}

// Execute renders the score and stores its locator under the music parameter
// name. The piped input is forwarded untouched.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (m *MusicScore) Execute(context cor.Context) {
	commercial := context.Get(GetCommercialParameterName()).(*model.Commercial)

	if strings.TrimSpace(commercial.MusicPrompt) == "" {
		// Nothing to render; the commercial ships without a score.
		m.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, context.Get(m.GetInputParam()))
		return
	}

	score, err := m.music.Generate(context.GetContext(), commercial.MusicPrompt, "")
	if err != nil {
		m.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(m.GetName(), fmt.Errorf("music generation failed: %w", err))
		return
	}

	m.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetMusicLocatorParameterName(), score)
	context.Add(cor.CtxOut, context.Get(m.GetInputParam()))
}
