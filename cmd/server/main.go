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
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-video-producer/internal/cloud"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-producer/internal/core/model"
	"github.com/jaycherian/gcp-go-video-producer/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Add OpenTelemetry middleware
	r.Use(otelgin.Middleware("video-producer-server"))

	// Permissive CORS keeps local frontend development friction-free.
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		CommercialRouter(apiV1)
		SceneRouter(apiV1)
		ImageUpload(apiV1)
		AgentRouter(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Wait for an interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// CommercialRouter sets up the route producing a full commercial from a
// creative brief.
func CommercialRouter(r *gin.RouterGroup) {
	commercials := r.Group("/commercials")
	{
		commercials.POST("", func(c *gin.Context) {
			var req struct {
				Brief string `json:"brief" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			corCtx := cor.NewBaseContext()
			defer corCtx.Close()
			corCtx.SetContext(c.Request.Context())
			corCtx.Add(cor.CtxIn, req.Brief)

			state.producer.Execute(corCtx)
			if corCtx.HasErrors() {
				respondWorkflowErrors(c, corCtx)
				return
			}

			final := corCtx.Get(cor.CtxIn).(cloud.Locator)
			publicURL, err := final.PublicURL()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"uri":        final.String(),
				"public_url": publicURL,
			})
		})
	}
}

// SceneRouter sets up the route rendering one standalone scene.
func SceneRouter(r *gin.RouterGroup) {
	scenes := r.Group("/scenes")
	{
		scenes.POST("", func(c *gin.Context) {
			var req struct {
				Narration       string  `json:"narration" binding:"required"`
				VideoPrompt     string  `json:"video_prompt" binding:"required"`
				TextOverlay     string  `json:"text_overlay"`
				VoiceCategory   string  `json:"voice_category" binding:"required"`
				SpeakingRate    float64 `json:"speaking_rate"`
				DurationSeconds int     `json:"duration_seconds"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.SpeakingRate == 0 {
				req.SpeakingRate = 1.0
			}
			if req.DurationSeconds == 0 {
				req.DurationSeconds = 8
			}

			corCtx := cor.NewBaseContext()
			defer corCtx.Close()
			corCtx.SetContext(c.Request.Context())
			corCtx.Add(cor.CtxIn, &model.Commercial{Scenes: []*model.Scene{{
				SequenceNumber:  1,
				Narration:       req.Narration,
				VideoPrompt:     req.VideoPrompt,
				TextOverlay:     req.TextOverlay,
				VoiceCategory:   req.VoiceCategory,
				SpeakingRate:    req.SpeakingRate,
				DurationSeconds: req.DurationSeconds,
			}}})

			state.sceneRenderer.Execute(corCtx)
			if corCtx.HasErrors() {
				respondWorkflowErrors(c, corCtx)
				return
			}

			artifacts := corCtx.Get(commands.GetSceneArtifactsParameterName()).([]*model.SceneArtifacts)
			c.JSON(http.StatusOK, artifacts[0])
		})
	}
}

// ImageUpload sets up the route for staging reference images.
func ImageUpload(r *gin.RouterGroup) {
	images := r.Group("/images")
	{
		images.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
				return
			}

			staged := make([]gin.H, 0, len(files))
			for _, file := range files {
				localPath := filepath.Join(os.TempDir(), filepath.Base(file.Filename))
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				loc, mimeType, err := state.imageService.Upload(c.Request.Context(), localPath)
				if removeErr := os.Remove(localPath); removeErr != nil {
					log.Printf("failed to remove staged upload: %v\n", removeErr)
				}
				if err != nil {
					c.JSON(statusForError(err), gin.H{"error": err.Error()})
					return
				}
				publicURL, err := loc.PublicURL()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				staged = append(staged, gin.H{
					"uri":        loc.String(),
					"public_url": publicURL,
					"mime_type":  mimeType,
				})
			}
			c.JSON(http.StatusOK, staged)
		})
	}
}

// AgentRouter sets up the route producing a commercial through the
// tool-calling agent instead of the fixed pipeline. The agent's final text
// answer names the finished commercial's location.
func AgentRouter(r *gin.RouterGroup) {
	agents := r.Group("/agent")
	{
		agents.POST("", func(c *gin.Context) {
			if state.agentProducer == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no agent model configured"})
				return
			}

			var req struct {
				Brief string `json:"brief" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			answer, err := state.agentProducer.Produce(c.Request.Context(), req.Brief)
			if err != nil {
				c.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"answer": answer})
		})
	}
}

// respondWorkflowErrors maps the first workflow error to an HTTP status and
// returns every recorded error keyed by the command that raised it.
func respondWorkflowErrors(c *gin.Context, corCtx cor.Context) {
	status := http.StatusInternalServerError
	details := make(gin.H, len(corCtx.GetErrors()))
	for key, err := range corCtx.GetErrors() {
		details[key] = err.Error()
		if status == http.StatusInternalServerError {
			status = statusForError(err)
		}
	}
	c.JSON(status, gin.H{"errors": details})
}

// statusForError translates the error taxonomy into HTTP status codes.
func statusForError(err error) int {
	switch model.KindOf(err) {
	case model.ErrInvalidInput:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
