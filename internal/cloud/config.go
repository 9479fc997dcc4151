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

// Package cloud defines the application configuration, loaded from layered
// TOML files, and the Google Cloud client container shared by the API server
// and the worker pool.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings disables content blocking for the planning model.
// The input is the customer's own transcript, not open web content.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Storage configures the GCS buckets and the local scratch space.
type Storage struct {
	SourceBucket string `toml:"source_bucket"` // Uploaded long-form source videos.
	OutputBucket string `toml:"output_bucket"` // Rendered clip variants.
	AssetBucket  string `toml:"asset_bucket"`  // Music tracks and synthesized voice-overs.
	TempDir      string `toml:"temp_dir"`      // Scratch directory for render stages; empty means the OS default.
}

// Render configures the external media processor and the per-job fan-out.
type Render struct {
	FFmpegPath          string  `toml:"ffmpeg_path"`           // Path to the ffmpeg binary.
	FFprobePath         string  `toml:"ffprobe_path"`          // Path to the ffprobe binary.
	SceneThreshold      float64 `toml:"scene_threshold"`       // Normalized scene-change threshold, typically 0.3.
	FanOut              int     `toml:"fan_out"`               // Concurrent variant renders per job.
	ProbeTimeoutSeconds int     `toml:"probe_timeout_seconds"` // Deadline for probe/scene-detect calls.
	StageTimeoutSeconds int     `toml:"stage_timeout_seconds"` // Deadline for each transcode stage.
}

// Planner configures the auto-clip policy and overlay defaults.
type Planner struct {
	MinAutoSeconds    float64 `toml:"min_auto_seconds"`    // Lower bound for highlight-planner windows.
	MaxAutoSeconds    float64 `toml:"max_auto_seconds"`    // Upper bound for highlight-planner windows.
	DefaultPromoLabel string  `toml:"default_promo_label"`
	DefaultCtaText    string  `toml:"default_cta_text"`
	DefaultBrandTag   string  `toml:"default_brand_tag"`
}

// BigQueryDataSource names the dataset and tables backing the job store and
// the usage ledger.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset"`
	JobsTable    string `toml:"jobs_table"`
	OutputsTable string `toml:"outputs_table"`
	UsageTable   string `toml:"usage_table"`
}

// Reaper configures recovery of jobs stranded in processing by a crashed
// worker.
type Reaper struct {
	IntervalSeconds   int `toml:"interval_seconds"`    // How often the reaper scans.
	StaleAfterMinutes int `toml:"stale_after_minutes"` // Processing with no progress update for this long means stranded.
	MaxRequeues       int `toml:"max_requeues"`        // Requeue budget before the job is failed outright.
}

// PromptTemplates holds the prompt text for the generative collaborators.
type PromptTemplates struct {
	PlanPrompt       string `toml:"plan"`       // Highlight selection + marketing copy.
	TranscribePrompt string `toml:"transcribe"` // Speech-to-text with time-aligned segments.
}

// VertexAiLLMModel configures one Vertex AI model used as a collaborator.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// TopicSubscription configures one Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`  // Subscription id the listener pulls from.
	Topic            string `toml:"topic"` // Topic id publishers write to.
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Config is the root configuration aggregate.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"` // Worker pool size for concurrent job processing.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	Render             Render                       `toml:"render"`
	Planner            Planner                      `toml:"planner"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	Reaper             Reaper                       `toml:"reaper"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
}

// NewConfig creates a Config with initialized maps and the defaults that
// matter for correctness when a TOML file omits them.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Application.ThreadPoolSize = 4
	c.Render.SceneThreshold = 0.3
	c.Render.FanOut = 2
	c.Render.ProbeTimeoutSeconds = 30
	c.Render.StageTimeoutSeconds = 600
	c.Planner.MinAutoSeconds = 15
	c.Planner.MaxAutoSeconds = 30
	c.Reaper.IntervalSeconds = 60
	c.Reaper.StaleAfterMinutes = 30
	c.Reaper.MaxRequeues = 2
	return c
}
