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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/telemetry"
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
	r.Use(otelgin.Middleware("clip-pilot-server"))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		JobRouter(apiV1)
		OutputRouter(apiV1)
		FileUpload(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	state.reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// CreateJobRequest is the POST /jobs payload: attribution, exactly one source
// reference, and the render request.
type CreateJobRequest struct {
	OwnerID   string              `json:"owner_id"`
	OrgID     string              `json:"org_id"`
	SourceURL string              `json:"source_url"`
	SourceKey string              `json:"source_key"`
	Request   model.RenderRequest `json:"request"`
}

// validate normalizes the payload in place and reports the first problem.
func (r *CreateJobRequest) validate() string {
	if (r.SourceURL == "") == (r.SourceKey == "") {
		return "exactly one of source_url or source_key is required"
	}
	if r.OwnerID == "" {
		return "owner_id is required"
	}
	if r.Request.AudioMode == "" {
		r.Request.AudioMode = model.AudioOriginalOnly
	}
	if !r.Request.AudioMode.Valid() {
		return "unknown audio_mode: " + string(r.Request.AudioMode)
	}
	for _, a := range r.Request.Aspects {
		if !a.Valid() {
			return "unknown aspect: " + string(a)
		}
	}
	if r.Request.VariantCount < 0 {
		return "variant_count must not be negative"
	}
	if r.Request.TargetSeconds < 0 {
		return "target_seconds must not be negative"
	}
	return ""
}

// JobRouter sets up the routes for creating and inspecting clip jobs.
func JobRouter(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.POST("", func(c *gin.Context) {
			var req CreateJobRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if msg := req.validate(); msg != "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": msg})
				return
			}

			now := time.Now()
			job := &model.ClipJob{
				ID:                    uuid.NewString(),
				OwnerID:               req.OwnerID,
				OrgID:                 req.OrgID,
				SourceURL:             req.SourceURL,
				SourceKey:             req.SourceKey,
				Request:               req.Request,
				Status:                model.JobQueued,
				EstimateDurationUnits: req.Request.EstimateUnits,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if err := state.jobStore.Create(c, job); err != nil {
				slog.Error("failed to persist job", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			if err := state.publisher.PublishJob(c, &cloud.ClipJobMessage{JobID: job.ID, Attempt: 0}); err != nil {
				// The row exists but no worker will see it until the reaper
				// or a retry republishes; surface the failure to the caller.
				slog.Error("failed to publish job message", "job_id", job.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "job accepted but not scheduled", "id": job.ID})
				return
			}
			c.JSON(http.StatusAccepted, job)
		})

		jobs.GET("/:id", func(c *gin.Context) {
			job, err := state.jobStore.Get(c, c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, job)
		})

		jobs.GET("/:id/outputs", func(c *gin.Context) {
			outputs, err := state.jobStore.Outputs(c, c.Param("id"))
			if err != nil {
				slog.Error("failed to list outputs", "job_id", c.Param("id"), "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, outputs)
		})
	}
}

// OutputRouter sets up the route for streaming a rendered clip through a
// short-lived signed URL.
func OutputRouter(r *gin.RouterGroup) {
	outputs := r.Group("/outputs")
	{
		outputs.GET("/:id/stream", func(c *gin.Context) {
			output, err := state.jobStore.Output(c, c.Param("id"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "output not found"})
				return
			}
			signedURL, err := state.outputStore.SignedGetURL(output.StorageKey, 15*time.Minute)
			if err != nil {
				slog.Error("failed to sign output URL", "output_id", output.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

// FileUpload sets up the route for uploading source videos to the source
// bucket.
func FileUpload(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			keys := make([]string, 0, len(files))

			for _, file := range files {
				localPath := filepath.Join(os.TempDir(), filepath.Base(file.Filename))
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}
				key := "sources/" + uuid.NewString() + "-" + filepath.Base(file.Filename)
				if _, err := state.sourceStore.Put(c, key, localPath, "video/mp4"); err != nil {
					slog.Error("failed to upload source", "key", key, "error", err)
					c.Status(http.StatusInternalServerError)
					return
				}
				if err := os.Remove(localPath); err != nil {
					slog.Warn("failed to remove local upload", "path", localPath, "error", err)
				}
				keys = append(keys, key)
			}
			c.JSON(http.StatusOK, gin.H{"source_keys": keys})
		})
	}
}
