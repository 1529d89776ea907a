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
// cleanup step that runs after a commercial has been assembled.
//
// Logic Flow:
// Production leaves a trail of intermediates behind: per-scene narration
// audio, silent clips, muxed scene videos, and the score. Once the final
// video exists none of them are needed, so this command deletes them to keep
// storage costs flat. Deletion failures are logged but never fail the
// workflow; the finished commercial is already safe, and orphaned
// intermediates age out with the bucket's lifecycle rules. The piped value
// (the final video's locator) passes through untouched.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/services"
)

// ArtifactCleanup is a command that removes intermediate production objects
// from Cloud Storage.
type ArtifactCleanup struct {
	cor.BaseCommand
	store services.BlobStore // The artifact store holding the intermediates.
}

// NewArtifactCleanup is the constructor for the ArtifactCleanup command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - store: The blob store to delete intermediates from.
//
// Outputs:
//   - *ArtifactCleanup: A pointer to the newly instantiated command.
func NewArtifactCleanup(name string, store services.BlobStore) *ArtifactCleanup {
	return &ArtifactCleanup{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

// IsExecutable requires the scene artifact records to be present.
func (a *ArtifactCleanup) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetSceneArtifactsParameterName()) != nil
}

// Execute deletes every intermediate object recorded during production.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (a *ArtifactCleanup) Execute(context cor.Context) {
	artifacts := context.Get(GetSceneArtifactsParameterName()).([]*model.SceneArtifacts)

	uris := make([]string, 0, len(artifacts)*3+1)
	for _, art := range artifacts {
		uris = append(uris, art.NarrationURI, art.ClipURI, art.MuxedURI)
	}
	if score := context.Get(GetMusicLocatorParameterName()); score != nil {
		uris = append(uris, score.(cloud.Locator).String())
	}

	for _, uri := range uris {
		if uri == "" {
			continue
		}
		loc, err := cloud.ParseLocator(uri)
		if err != nil {
			slog.Warn("skipping cleanup of an unparsable locator", "uri", uri, "error", err)
			continue
		}
		if err := a.store.Delete(context.GetContext(), loc); err != nil && !model.IsKind(err, model.ErrNotFound) {
			slog.Warn("failed to delete an intermediate artifact", "uri", uri, "error", err)
		}
	}

	a.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, context.Get(a.GetInputParam()))
}
