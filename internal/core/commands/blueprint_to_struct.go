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
// data transformation step that follows the `BlueprintCreator`.
//
// Logic Flow:
// The raw JSON string from the planning model is parsed into the
// strongly-typed `model.Commercial` blueprint, validated, and normalized so
// that every later command can rely on its shape:
//
//  1. The JSON is unmarshaled; a malformed response is a hard error.
//  2. A blueprint with no scenes is rejected.
//  3. Scenes are ordered by sequence number and renumbered 1..N so gaps or
//     duplicates from the model cannot desynchronize the pipeline.
//  4. Per-scene defaults are applied (speaking rate, clip length) and the
//     music volume is clamped into [0, 1].
//
// The validated blueprint is stored both as the piped output and under its
// well-known parameter name for commands later in the chain.
package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
)

const (
	defaultSpeakingRate = 1.0
	defaultClipSeconds  = 8
	minClipSeconds      = 5
	maxClipSeconds      = 8
)

// BlueprintJsonToStruct is a command that parses and validates a commercial
// blueprint from its JSON form.
type BlueprintJsonToStruct struct {
	cor.BaseCommand // Embeds the BaseCommand for common functionality.
}

// NewBlueprintJsonToStruct is the constructor for the BlueprintJsonToStruct
// command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - outputParamName: The context key where the resulting struct will be stored.
//
// Outputs:
//   - *BlueprintJsonToStruct: A pointer to the newly instantiated command.
func NewBlueprintJsonToStruct(name string, outputParamName string) *BlueprintJsonToStruct {
	out := BlueprintJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
	out.OutputParamName = outputParamName
	return &out
}

// Execute parses, validates, and normalizes the blueprint.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *BlueprintJsonToStruct) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)

	doc := &model.Commercial{}
	if err := json.Unmarshal([]byte(in), &doc); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to unmarshal the blueprint JSON: %w", err))
		return
	}

	if err := normalizeCommercial(doc); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetCommercialParameterName(), doc)
	context.Add(s.GetOutputParam(), doc)
	context.Add(cor.CtxOut, doc)
}

// normalizeCommercial enforces the blueprint invariants in place.
func normalizeCommercial(doc *model.Commercial) error {
	if len(doc.Scenes) == 0 {
		return model.NewError(model.ErrInvalidInput, "the blueprint contains no scenes")
	}

	sort.SliceStable(doc.Scenes, func(i, j int) bool {
		return doc.Scenes[i].SequenceNumber < doc.Scenes[j].SequenceNumber
	})

	for i, scene := range doc.Scenes {
		scene.SequenceNumber = i + 1
		if strings.TrimSpace(scene.Narration) == "" {
			return model.NewError(model.ErrInvalidInput, "scene %d has no narration", scene.SequenceNumber)
		}
		if strings.TrimSpace(scene.VideoPrompt) == "" {
			return model.NewError(model.ErrInvalidInput, "scene %d has no video prompt", scene.SequenceNumber)
		}
		if scene.SpeakingRate <= 0 {
			scene.SpeakingRate = defaultSpeakingRate
		}
		if scene.DurationSeconds <= 0 {
			scene.DurationSeconds = defaultClipSeconds
		}
		if scene.DurationSeconds < minClipSeconds {
			scene.DurationSeconds = minClipSeconds
		}
		if scene.DurationSeconds > maxClipSeconds {
			scene.DurationSeconds = maxClipSeconds
		}
	}

	if doc.MusicVolume < 0 {
		doc.MusicVolume = 0
	}
	if doc.MusicVolume > 1 {
		doc.MusicVolume = 1
	}
	return nil
}
