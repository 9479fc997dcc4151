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
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/workflow"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	jobStore    services.JobStore
	usageLedger services.UsageLedger
	sourceStore services.ObjectStore
	outputStore services.ObjectStore
	assetStore  services.ObjectStore
	publisher   cloud.JobPublisher
	reaper      *workflow.ReaperWorkflow
}

var state = &StateManager{}

func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
		if err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the application state: cloud clients, persistence,
// the generative collaborators, the render and job workflows, the Pub/Sub
// listener, and the reaper sweep.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	signerEmail := config.Application.SignerServiceAccountEmail
	state.sourceStore = services.NewGCSObjectStore(cloudClients.StorageClient, cloudClients.IAMClient, config.Storage.SourceBucket, signerEmail)
	state.outputStore = services.NewGCSObjectStore(cloudClients.StorageClient, cloudClients.IAMClient, config.Storage.OutputBucket, signerEmail)
	state.assetStore = services.NewGCSObjectStore(cloudClients.StorageClient, cloudClients.IAMClient, config.Storage.AssetBucket, signerEmail)

	ds := config.BigQueryDataSource
	state.jobStore = services.NewBigQueryJobStore(cloudClients.BigQueryClient, ds.DatasetName, ds.JobsTable, ds.OutputsTable)
	state.usageLedger = services.NewBigQueryUsageLedger(cloudClients.BigQueryClient, ds.DatasetName, ds.UsageTable)

	jobsTopic := config.TopicSubscriptions["JobsSub"]
	state.publisher = cloud.NewPubSubJobPublisher(cloudClients.PubsubClient.Topic(jobsTopic.Topic))

	SetupListeners(ctx, config, cloudClients)

	state.reaper = workflow.NewReaperWorkflow(config, state.jobStore, state.publisher)
	state.reaper.StartTimer()
}

// SetupListeners assembles the job processing workflow and attaches it to the
// jobs subscription.
func SetupListeners(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients) {
	tool := media.NewRunner(
		config.Render.FFmpegPath,
		config.Render.FFprobePath,
		time.Duration(config.Render.ProbeTimeoutSeconds)*time.Second,
		time.Duration(config.Render.StageTimeoutSeconds)*time.Second,
	)

	transcribeTmpl := template.Must(template.New("transcribe").Parse(config.PromptTemplates.TranscribePrompt))
	planTmpl := template.Must(template.New("plan").Parse(config.PromptTemplates.PlanPrompt))

	transcriber := services.NewGenAITranscriber(cloudClients.AgentModels["transcriber"], transcribeTmpl)
	planner := services.NewGenAIPlanner(cloudClients.AgentModels["planner"], planTmpl)
	voice := services.NewGenAIVoiceSynthesizer(cloudClients.AgentModels["voice"])

	renderer := workflow.NewClipRenderWorkflow(tool, state.outputStore)
	processor := workflow.NewClipJobWorkflow(
		config,
		state.jobStore,
		state.usageLedger,
		state.sourceStore,
		state.assetStore,
		tool,
		transcriber,
		planner,
		voice,
		renderer,
	)

	cloudClients.PubSubListeners["JobsSub"].SetCommand(commands.NewJobTrigger("job-trigger", processor))
	cloudClients.PubSubListeners["JobsSub"].Listen(ctx)
}
