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
// command that joins the rendered scenes into one commercial.
//
// Logic Flow:
// The scene artifacts arrive already sorted by sequence number. Each muxed
// scene clip becomes one input of a single concatenation job; the clip
// lengths are the narration lengths recorded during scene production, so no
// additional probing is needed here. The summed length is stored for the
// final mix stage, which needs it for the music edit atom.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// ClipConcat is a command that concatenates the muxed scene clips in
// blueprint order.
type ClipConcat struct {
	cor.BaseCommand
	transcode *services.TranscodeService // Concatenation jobs.
}

// NewClipConcat is the constructor for the ClipConcat command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - transcode: The transcode service used for the concatenation job.
//
// Outputs:
//   - *ClipConcat: A pointer to the newly instantiated command.
func NewClipConcat(name string, transcode *services.TranscodeService) *ClipConcat {
	return &ClipConcat{BaseCommand: *cor.NewBaseCommand(name), transcode: transcode}
}

// Execute submits the concatenation job and pipes the assembled video's
// locator to the next command.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *ClipConcat) Execute(context cor.Context) {
	artifacts := context.Get(c.GetInputParam()).([]*model.SceneArtifacts)

	clips := make([]cloud.Locator, 0, len(artifacts))
	durations := make([]float64, 0, len(artifacts))
	total := 0.0
	for _, a := range artifacts {
		loc, err := cloud.ParseLocator(a.MuxedURI)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("scene %d has an invalid muxed locator: %w", a.SequenceNumber, err))
			return
		}
		clips = append(clips, loc)
		durations = append(durations, a.AudioSeconds)
		total += a.AudioSeconds
	}

	assembled, err := c.transcode.Concat(context.GetContext(), clips, durations)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("clip concatenation failed: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetTotalDurationParameterName(), total)
	context.Add(c.GetOutputParam(), assembled)
	context.Add(cor.CtxOut, assembled)
}
