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
// Responsibility (COR) pattern's Command interface. This file defines the
// command that turns a free-form creative brief into a commercial blueprint.
//
// Logic Flow:
// This is the first step of the production pipeline. It builds a prompt from
// a Go template, enriched with a complete example blueprint (few-shot
// prompting) and the list of supported voice categories, then asks the
// generative model to plan the commercial: a title, a music direction, and a
// scene list with narration and visual prompts. The raw JSON response is
// placed in the context for the `BlueprintJsonToStruct` command to parse.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// BlueprintCreator is a command that uses a generative model to plan a
// commercial from a creative brief.
type BlueprintCreator struct {
	cor.BaseCommand
	generativeAIModel  *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	template           *template.Template                 // The Go template for building the prompt.
	inputTokenCounter  metric.Int64Counter                // OTel counter for input tokens.
	outputTokenCounter metric.Int64Counter                // OTel counter for output tokens.
	retryCounter       metric.Int64Counter                // OTel counter for retries.
}

// NewBlueprintCreator is the constructor for the BlueprintCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the planning prompt.
//
// Outputs:
//   - *BlueprintCreator: A pointer to the newly instantiated command.
func NewBlueprintCreator(
	name string,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *BlueprintCreator {

	out := &BlueprintCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template}

	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.retryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.retry", out.GetName()))

	return out
}

// GenerateParams creates the map of dynamic data injected into the prompt
// template: the brief itself, an example blueprint, and the voice catalog.
func (t *BlueprintCreator) GenerateParams(brief string) map[string]interface{} {
	params := make(map[string]interface{})
	params["BRIEF"] = brief

	// A complete, well-formed example blueprint anchors the model's output
	// structure far more reliably than a schema description alone.
	exampleBlueprint, _ := json.Marshal(model.GetExampleCommercial())
	params["EXAMPLE_JSON"] = string(exampleBlueprint)
	params["VOICE_CATEGORIES"] = strings.Join(services.VoiceCategoryNames(), ", ")
	return params
}

// Execute builds the planning prompt and calls the generative model.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (t *BlueprintCreator) Execute(context cor.Context) {
	brief := context.Get(t.GetInputParam()).(string)
	if strings.TrimSpace(brief) == "" {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), model.NewError(model.ErrInvalidInput, "the creative brief is empty"))
		return
	}

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(brief)); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateResponse(
		context.GetContext(),
		t.inputTokenCounter,
		t.outputTokenCounter,
		t.retryCounter,
		0,
		t.generativeAIModel,
		cloud.NewTextPart(buffer.String()))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("blueprint generation failed: %w", err))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}
