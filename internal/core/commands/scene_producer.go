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
// command that renders every scene of a validated blueprint.
//
// Logic Flow:
// Scene rendering dominates the pipeline's wall-clock time, so scenes are
// produced concurrently through a worker pool. Each worker takes one scene
// through the full per-scene sequence:
//
//  1. Synthesize the narration audio from the scene's text and voice.
//  2. Probe the narration for its exact length; the clip must cover it.
//  3. Generate the video clip from the scene's visual prompt.
//  4. Mux the narration onto the silent clip, trimmed to the narration.
//
// The main Execute function distributes one job per scene over a `jobs`
// channel, waits for the pool to drain, and collects the per-scene artifact
// records from the `results` channel. Results are re-sorted by sequence
// number because workers finish out of order.
package commands

import (
	goctx "context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SceneProducer is a command that renders blueprint scenes in parallel into
// narrated video clips.
type SceneProducer struct {
	cor.BaseCommand
	speech          *services.SpeechService    // Narration synthesis.
	duration        *services.DurationService  // Narration length probing.
	video           *services.VideoService     // Clip generation.
	transcode       *services.TranscodeService // Narration muxing.
	numberOfWorkers int                        // The number of concurrent workers to spawn.
}

// NewSceneProducer is the constructor for the SceneProducer command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - speech: The narration synthesis service.
//   - duration: The media duration probe service.
//   - video: The clip generation service.
//   - transcode: The transcode service used for narration muxing.
//   - numberOfWorkers: The size of the worker pool for concurrent rendering.
//
// Outputs:
//   - *SceneProducer: A pointer to the newly instantiated command.
func NewSceneProducer(
	name string,
	speech *services.SpeechService,
	duration *services.DurationService,
	video *services.VideoService,
	transcode *services.TranscodeService,
	numberOfWorkers int) *SceneProducer {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	return &SceneProducer{
		BaseCommand:     *cor.NewBaseCommand(name),
		speech:          speech,
		duration:        duration,
		video:           video,
		transcode:       transcode,
		numberOfWorkers: numberOfWorkers,
	}
}

// sceneProductionJob carries everything one worker needs to render a scene.
type sceneProductionJob struct {
	ctx   goctx.Context
	span  trace.Span
	scene *model.Scene
}

// close ends the OpenTelemetry span associated with this job.
func (j *sceneProductionJob) close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// sceneProductionResult is sent back by workers: either a finished artifact
// record or the error that stopped the scene.
type sceneProductionResult struct {
	artifacts *model.SceneArtifacts
	err       error
}

// Execute fans the blueprint's scenes out over the worker pool and gathers
// the artifact records.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *SceneProducer) Execute(context cor.Context) {
	commercial := context.Get(s.GetInputParam()).(*model.Commercial)

	var wg sync.WaitGroup
	jobs := make(chan *sceneProductionJob, len(commercial.Scenes))
	results := make(chan *sceneProductionResult, len(commercial.Scenes))

	for w := 1; w <= s.numberOfWorkers; w++ {
		wg.Add(1)
		go s.sceneWorker(jobs, results, &wg)
	}

	for _, scene := range commercial.Scenes {
		sceneCtx, sceneSpan := s.Tracer.Start(context.GetContext(), fmt.Sprintf("%s_scene_%d", s.GetName(), scene.SequenceNumber))
		sceneSpan.SetAttributes(
			attribute.Int("sequence", scene.SequenceNumber),
			attribute.String("voice_category", scene.VoiceCategory),
		)
		jobs <- &sceneProductionJob{ctx: sceneCtx, span: sceneSpan, scene: scene}
	}
	close(jobs)

	wg.Wait()
	close(results)

	artifacts := make([]*model.SceneArtifacts, 0, len(commercial.Scenes))
	for r := range results {
		if r.err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), r.err)
			continue
		}
		artifacts = append(artifacts, r.artifacts)
	}
	if context.HasErrors() {
		return
	}

	// Workers complete out of order; restore blueprint order for assembly.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].SequenceNumber < artifacts[j].SequenceNumber
	})

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSceneArtifactsParameterName(), artifacts)
	context.Add(s.GetOutputParam(), artifacts)
	context.Add(cor.CtxOut, artifacts)
}

// sceneWorker renders scenes from the jobs channel until it is drained.
func (s *SceneProducer) sceneWorker(jobs <-chan *sceneProductionJob, results chan<- *sceneProductionResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		artifacts, err := s.produceScene(j.ctx, j.scene)
		if err != nil {
			j.close(codes.Error, "scene production failed")
			results <- &sceneProductionResult{err: fmt.Errorf("scene %d: %w", j.scene.SequenceNumber, err)}
			continue
		}
		j.close(codes.Ok, "scene completed")
		results <- &sceneProductionResult{artifacts: artifacts}
	}
}

// produceScene runs the full synthesis sequence for one scene.
func (s *SceneProducer) produceScene(ctx goctx.Context, scene *model.Scene) (*model.SceneArtifacts, error) {
	narration, err := s.speech.Synthesize(ctx, services.SynthesisRequest{
		Text:          scene.Narration,
		VoiceCategory: scene.VoiceCategory,
		SpeakingRate:  scene.SpeakingRate,
	})
	if err != nil {
		return nil, err
	}

	audioSeconds, err := s.duration.ProbeAudio(ctx, narration)
	if err != nil {
		return nil, err
	}
	if audioSeconds <= 0 {
		return nil, model.NewError(model.ErrUnexpected, "narration %s has a zero length", narration)
	}

	// The clip has to be at least as long as the narration it will carry.
	clipSeconds := scene.DurationSeconds
	if needed := int(math.Ceil(audioSeconds)); needed > clipSeconds {
		clipSeconds = needed
	}
	if clipSeconds > maxClipSeconds {
		clipSeconds = maxClipSeconds
	}

	clip, err := s.video.Generate(ctx, services.ClipRequest{
		Prompt:          composeVideoPrompt(scene),
		DurationSeconds: int32(clipSeconds),
	})
	if err != nil {
		return nil, err
	}

	muxed, err := s.transcode.MuxNarration(ctx, clip, narration, audioSeconds)
	if err != nil {
		return nil, err
	}

	return &model.SceneArtifacts{
		SequenceNumber: scene.SequenceNumber,
		NarrationURI:   narration.String(),
		AudioSeconds:   audioSeconds,
		ClipURI:        clip.String(),
		MuxedURI:       muxed.String(),
	}, nil
}

// composeVideoPrompt appends the on-screen overlay request to the visual
// prompt when the scene defines one.
func composeVideoPrompt(scene *model.Scene) string {
	if scene.TextOverlay == "" {
		return scene.VideoPrompt
	}
	return fmt.Sprintf("%s The text %q is displayed prominently on screen.", scene.VideoPrompt, scene.TextOverlay)
}
