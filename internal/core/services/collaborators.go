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

// Package services contains the business logic for interacting with data
// sources. This file defines the generative collaborators: transcription,
// highlight planning, and voice-over synthesis. Each is an interface so the
// render workflow can run against scripted fakes in tests, with Vertex AI
// implementations built on the quota-aware model wrapper.
//
// All model output is structured JSON requested through the prompt templates
// configured in the TOML files. The workflow treats the planner and
// transcriber as advisors: their output is validated against source geometry
// before any ffmpeg invocation trusts it.
package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"google.golang.org/genai"
)

// Transcriber produces a time-aligned transcript for a source video.
type Transcriber interface {
	// Transcribe returns the transcript of the object at sourceURI. An empty
	// transcript is a valid result for videos without speech.
	Transcribe(ctx context.Context, sourceURI string, mimeType string) (*model.Transcript, error)
}

// PlanRequest carries the inputs the highlight planner needs to choose
// windows and write marketing copy.
type PlanRequest struct {
	Transcript     *model.Transcript
	SourceDuration float64
	TargetSeconds  float64
	VariantCount   int
	MinSeconds     float64
	MaxSeconds     float64
	WantVoice      bool // Ask the planner for a voice-over script alongside the copy.
}

// PlanResponse is the planner's structured answer: up to VariantCount plans
// plus an optional voice-over script shared by all variants.
type PlanResponse struct {
	Plans       []model.ClipPlan `json:"plans"`
	VoiceScript string           `json:"voice_script,omitempty"`
}

// ClipPlanner selects highlight windows and writes the marketing copy
// attached to them.
type ClipPlanner interface {
	Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error)
}

// VoiceSynthesizer renders a narration script to an audio file on disk.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script string, outPath string) error
}

// GenAITranscriber implements Transcriber with a multi-modal Gemini request:
// the video is passed by gs:// reference and the prompt asks for JSON
// segments with start, end, and text fields.
type GenAITranscriber struct {
	Model    *cloud.QuotaAwareGenerativeAIModel
	Template *template.Template

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGenAITranscriber creates a transcriber with its telemetry counters
// registered on the application meter.
func NewGenAITranscriber(aiModel *cloud.QuotaAwareGenerativeAIModel, tmpl *template.Template) *GenAITranscriber {
	out := &GenAITranscriber{Model: aiModel, Template: tmpl}
	meter := otel.Meter("github.com/jaycherian/gcp-go-clip-pilot")
	out.inputTokenCounter, _ = meter.Int64Counter("transcriber.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("transcriber.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("transcriber.gemini.retry")
	return out
}

// Transcribe sends the video reference and prompt to the model and parses the
// JSON segment list it returns.
func (t *GenAITranscriber) Transcribe(ctx context.Context, sourceURI string, mimeType string) (*model.Transcript, error) {
	var buffer bytes.Buffer
	if err := t.Template.Execute(&buffer, map[string]interface{}{}); err != nil {
		return nil, fmt.Errorf("failed to execute transcribe template: %w", err)
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: buffer.String()},
				{FileData: &genai.FileData{FileURI: sourceURI, MIMEType: mimeType}},
			},
			Role: "user",
		},
	}

	raw, err := cloud.GenerateMultiModalResponse(ctx, t.inputTokenCounter, t.outputTokenCounter, t.retryCounter, 0, t.Model, contents)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	transcript := &model.Transcript{}
	if err := json.Unmarshal([]byte(raw), transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript response: %w", err)
	}
	return transcript, nil
}

// GenAIPlanner implements ClipPlanner against a text-only Gemini request over
// the transcript.
type GenAIPlanner struct {
	Model    *cloud.QuotaAwareGenerativeAIModel
	Template *template.Template

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGenAIPlanner creates a planner with its telemetry counters registered on
// the application meter.
func NewGenAIPlanner(aiModel *cloud.QuotaAwareGenerativeAIModel, tmpl *template.Template) *GenAIPlanner {
	out := &GenAIPlanner{Model: aiModel, Template: tmpl}
	meter := otel.Meter("github.com/jaycherian/gcp-go-clip-pilot")
	out.inputTokenCounter, _ = meter.Int64Counter("planner.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("planner.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("planner.gemini.retry")
	return out
}

// GenerateParams builds the substitution map for the planning prompt. An
// example response is included so the model returns well-formed JSON
// (few-shot prompting, same technique the prompt templates rely on for
// transcription).
func (p *GenAIPlanner) GenerateParams(req *PlanRequest) map[string]interface{} {
	example, _ := json.Marshal(&PlanResponse{
		Plans: []model.ClipPlan{{
			Start:      12.5,
			End:        41.0,
			Hook:       "The one mistake every beginner makes",
			Title:      "Stop doing this",
			Summary:    "The speaker explains the most common beginner mistake.",
			PromoLabel: "NEW",
			CtaText:    "Follow for more",
			BrandTag:   "@example",
			Hashtags:   []string{"#shorts", "#howto"},
		}},
		VoiceScript: "Here is the one mistake every beginner makes.",
	})
	return map[string]interface{}{
		"TRANSCRIPT":      req.Transcript.Text(),
		"SOURCE_DURATION": req.SourceDuration,
		"TARGET_SECONDS":  req.TargetSeconds,
		"VARIANT_COUNT":   req.VariantCount,
		"MIN_SECONDS":     req.MinSeconds,
		"MAX_SECONDS":     req.MaxSeconds,
		"WANT_VOICE":      req.WantVoice,
		"EXAMPLE_JSON":    string(example),
	}
}

// Plan executes the planning prompt and parses the structured response.
func (p *GenAIPlanner) Plan(ctx context.Context, req *PlanRequest) (*PlanResponse, error) {
	var buffer bytes.Buffer
	if err := p.Template.Execute(&buffer, p.GenerateParams(req)); err != nil {
		return nil, fmt.Errorf("failed to execute plan template: %w", err)
	}

	raw, err := cloud.GenerateMultiModalResponse(ctx, p.inputTokenCounter, p.outputTokenCounter, p.retryCounter, 0, p.Model, cloud.NewTextPart(buffer.String()))
	if err != nil {
		return nil, fmt.Errorf("planning request failed: %w", err)
	}

	resp := &PlanResponse{}
	if err := json.Unmarshal([]byte(raw), resp); err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w", err)
	}
	return resp, nil
}

// GenAIVoiceSynthesizer implements VoiceSynthesizer using a Gemini TTS model.
// The model returns raw 16-bit mono PCM at 24 kHz; a WAV header is prepended
// so ffmpeg can consume the file without format hints.
type GenAIVoiceSynthesizer struct {
	Model *cloud.QuotaAwareGenerativeAIModel
}

// NewGenAIVoiceSynthesizer creates a synthesizer over the configured TTS
// agent model.
func NewGenAIVoiceSynthesizer(aiModel *cloud.QuotaAwareGenerativeAIModel) *GenAIVoiceSynthesizer {
	return &GenAIVoiceSynthesizer{Model: aiModel}
}

// Synthesize renders the script to a WAV file at outPath.
func (v *GenAIVoiceSynthesizer) Synthesize(ctx context.Context, script string, outPath string) error {
	resp, err := v.Model.GenerateContent(ctx, cloud.NewTextPart(script))
	if err != nil {
		return fmt.Errorf("voice synthesis request failed: %w", err)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			return writeWAV(outPath, part.InlineData.Data, 24000, 1, 16)
		}
	}
	return fmt.Errorf("voice synthesis returned no audio data")
}

// writeWAV wraps raw little-endian PCM samples in a minimal RIFF/WAVE header.
func writeWAV(path string, pcm []byte, sampleRate int, channels int, bitsPerSample int) error {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var header bytes.Buffer
	header.WriteString("RIFF")
	_ = binary.Write(&header, binary.LittleEndian, uint32(36+len(pcm)))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	_ = binary.Write(&header, binary.LittleEndian, uint32(16))
	_ = binary.Write(&header, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&header, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&header, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&header, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&header, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&header, binary.LittleEndian, uint16(bitsPerSample))
	header.WriteString("data")
	_ = binary.Write(&header, binary.LittleEndian, uint32(len(pcm)))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(header.Bytes()); err != nil {
		_ = out.Close()
		return err
	}
	if _, err := out.Write(pcm); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
