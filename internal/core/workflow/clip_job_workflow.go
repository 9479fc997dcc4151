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

// Package workflow defines the high-level business logic orchestrations.
// This file implements the clip job workflow: the end-to-end processing of
// one queued job, from the atomic claim through source acquisition, planning,
// concurrent variant rendering, output replacement, and usage reporting.
//
// Failure policy: a job fails only when every variant fails. Partial results
// complete the job with the variants that rendered; billing covers only what
// was produced. Errors before any rendering starts move the job to the
// terminal error state and acknowledge the message, because redelivery would
// hit the same deterministic failure.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/plan"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// variantPlan pairs a cut window with the marketing copy attached to it.
// Scene-based plans carry no copy.
type variantPlan struct {
	window model.ClipWindow
	copy   *model.ClipPlan
}

// renderResult is one worker's answer for one variant.
type renderResult struct {
	index  int
	output *model.ClipOutput
	err    error
}

// ClipJobWorkflow processes queued clip jobs. It implements
// commands.JobProcessor so the Pub/Sub trigger can drive it directly.
type ClipJobWorkflow struct {
	config      *cloud.Config
	store       services.JobStore
	ledger      services.UsageLedger
	sourceStore services.ObjectStore
	assetStore  services.ObjectStore
	tool        media.Tool
	transcriber services.Transcriber
	planner     services.ClipPlanner
	voice       services.VoiceSynthesizer
	renderer    *ClipRenderWorkflow
	downloader  *commands.SourceDownload
	fanOut      int
}

// NewClipJobWorkflow is the constructor for the job workflow. The planner,
// transcriber, and voice synthesizer may be nil; the workflow degrades the
// corresponding features rather than failing.
func NewClipJobWorkflow(
	config *cloud.Config,
	store services.JobStore,
	ledger services.UsageLedger,
	sourceStore services.ObjectStore,
	assetStore services.ObjectStore,
	tool media.Tool,
	transcriber services.Transcriber,
	planner services.ClipPlanner,
	voice services.VoiceSynthesizer,
	renderer *ClipRenderWorkflow,
) *ClipJobWorkflow {
	fanOut := config.Render.FanOut
	if fanOut < 1 {
		fanOut = 1
	}
	return &ClipJobWorkflow{
		config:      config,
		store:       store,
		ledger:      ledger,
		sourceStore: sourceStore,
		assetStore:  assetStore,
		tool:        tool,
		transcriber: transcriber,
		planner:     planner,
		voice:       voice,
		renderer:    renderer,
		downloader:  commands.NewSourceDownload("source-download", sourceStore, nil, config.Storage.TempDir),
		fanOut:      fanOut,
	}
}

// Process runs one job to a terminal state. A nil return acknowledges the
// message; a non-nil return leaves it for redelivery, which is only correct
// for transient infrastructure failures.
func (w *ClipJobWorkflow) Process(ctx context.Context, jobID string) error {
	claimed, err := w.store.Claim(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim failed for job %s: %w", jobID, err)
	}
	if !claimed {
		// Duplicate delivery or an already-terminal job; nothing to do.
		slog.Info("job not claimable, dropping delivery", "job_id", jobID)
		return nil
	}

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load failed for claimed job %s: %w", jobID, err)
	}

	// The chain context owns the downloaded source and the voice/music
	// scratch files for the whole job.
	jobCtx := cor.NewBaseContext()
	jobCtx.SetContext(ctx)
	defer jobCtx.Close()

	sourcePath, err := w.fetchSource(jobCtx, job)
	if err != nil {
		return w.fail(ctx, job.ID, fmt.Errorf("source acquisition: %w", err))
	}

	duration, hasAudio, err := w.probe(ctx, job, sourcePath)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}

	_ = w.store.UpdateProgress(ctx, job.ID, model.StageTranscribe, 10)
	transcript := w.transcribe(ctx, job)

	_ = w.store.UpdateProgress(ctx, job.ID, model.StagePlan, 25)
	plans, voiceScript, err := w.planVariants(ctx, job, sourcePath, duration, transcript)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}

	voicePath := w.prepareVoice(jobCtx, job, voiceScript)
	musicPath := w.prepareMusic(jobCtx, job)

	_ = w.store.UpdateProgress(ctx, job.ID, model.StageRender, 40)
	outputs, renderErrs := w.renderAll(ctx, job, plans, sourcePath, duration, hasAudio, transcript, voicePath, musicPath)

	if len(outputs) == 0 {
		return w.fail(ctx, job.ID, fmt.Errorf("all %d variants failed: %w", len(plans)*w.aspectCount(job), errors.Join(renderErrs...)))
	}
	for _, rerr := range renderErrs {
		slog.Warn("variant failed, continuing with partial results", "job_id", job.ID, "error", rerr)
	}

	// Finalization failures are transient infrastructure errors: leave the
	// message unacknowledged and let redelivery (or the reaper) retry.
	_ = w.store.UpdateProgress(ctx, job.ID, model.StageUpload, 95)
	if err := w.store.ReplaceOutputs(ctx, job.ID, outputs); err != nil {
		return fmt.Errorf("output replacement for job %s: %w", job.ID, err)
	}

	values := make([]model.ClipOutput, 0, len(outputs))
	for _, o := range outputs {
		values = append(values, *o)
	}
	units := model.BillableMinutes(values)
	if err := w.ledger.Report(ctx, &services.UsageRecord{
		IdempotencyKey:  job.ID,
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		OrgID:           job.OrgID,
		BillableMinutes: units,
	}); err != nil {
		return fmt.Errorf("usage report for job %s: %w", job.ID, err)
	}

	if err := w.store.MarkDone(ctx, job.ID, units); err != nil {
		return fmt.Errorf("completion for job %s: %w", job.ID, err)
	}
	slog.Info("job complete", "job_id", job.ID, "outputs", len(outputs), "billable_minutes", units)
	return nil
}

// fail moves the job to the terminal error state and acknowledges the
// message. Deterministic failures must not be redelivered.
func (w *ClipJobWorkflow) fail(ctx context.Context, jobID string, cause error) error {
	slog.Error("job failed", "job_id", jobID, "error", cause)
	if err := w.store.MarkError(ctx, jobID, cause.Error()); err != nil {
		// The state write itself failed; redeliver so the reaper or a retry
		// can settle the record.
		return fmt.Errorf("recording failure for job %s: %w", jobID, err)
	}
	return nil
}

// fetchSource materializes the job's source video on scratch disk through
// the download command.
func (w *ClipJobWorkflow) fetchSource(jobCtx cor.Context, job *model.ClipJob) (string, error) {
	jobCtx.Add(cor.CtxIn, &commands.SourceRef{Key: job.SourceKey, URL: job.SourceURL})
	w.downloader.Execute(jobCtx)
	if jobCtx.HasErrors() {
		for _, err := range jobCtx.GetErrors() {
			return "", err
		}
	}
	path, ok := jobCtx.Get(cor.CtxOut).(string)
	if !ok {
		return "", fmt.Errorf("download produced no file")
	}
	jobCtx.Remove(cor.CtxOut)
	return path, nil
}

// probe measures the source. A failed duration probe falls back to the
// caller's estimate so a container with broken metadata can still render;
// with no estimate either, the job cannot be billed and fails.
func (w *ClipJobWorkflow) probe(ctx context.Context, job *model.ClipJob, sourcePath string) (float64, bool, error) {
	duration, err := w.tool.ProbeDuration(ctx, sourcePath)
	if err != nil {
		estimate := float64(job.EstimateDurationUnits)
		if estimate <= 0 {
			estimate = float64(job.Request.EstimateUnits)
		}
		if estimate <= 0 {
			return 0, false, fmt.Errorf("probe failed and no duration estimate provided: %w", err)
		}
		slog.Warn("probe failed, using caller estimate", "job_id", job.ID, "estimate_seconds", estimate, "error", err)
		duration = estimate
	}

	hasAudio, err := w.tool.HasAudioStream(ctx, sourcePath)
	if err != nil {
		// Most sources carry audio; assuming so only risks a skipped retime.
		hasAudio = true
	}
	return duration, hasAudio, nil
}

// transcribe returns the source transcript, or an empty transcript when
// transcription is unavailable or fails after retries. Silence is a valid
// render input, not an error.
func (w *ClipJobWorkflow) transcribe(ctx context.Context, job *model.ClipJob) *model.Transcript {
	if w.transcriber == nil {
		return &model.Transcript{}
	}
	uri := job.SourceURL
	if job.SourceKey != "" {
		uri = w.sourceStore.URI(job.SourceKey)
	}

	var transcript *model.Transcript
	err := cloud.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var terr error
		transcript, terr = w.transcriber.Transcribe(ctx, uri, "video/mp4")
		return terr
	})
	if err != nil {
		slog.Warn("transcription failed, rendering without captions", "job_id", job.ID, "error", err)
		return &model.Transcript{}
	}
	return transcript
}

// planVariants produces the cut windows. Auto-planning delegates to the
// highlight planner and validates every window it proposes; when the planner
// is unavailable, fails, or proposes invalid geometry, planning falls back to
// scene-change detection so the job still renders.
func (w *ClipJobWorkflow) planVariants(ctx context.Context, job *model.ClipJob, sourcePath string, duration float64, transcript *model.Transcript) ([]variantPlan, string, error) {
	req := job.Request
	target := req.TargetSeconds
	if target <= 0 {
		target = (w.config.Planner.MinAutoSeconds + w.config.Planner.MaxAutoSeconds) / 2
	}
	if target > duration {
		target = duration
	}
	count := req.VariantCount
	if count < 1 {
		count = 1
	}

	if req.AutoPlan && w.planner != nil && !transcript.Empty() {
		plans, voiceScript, err := w.autoPlan(ctx, job, duration, target, count, transcript)
		if err == nil && len(plans) > 0 {
			return plans, voiceScript, nil
		}
		slog.Warn("auto-planning unavailable, falling back to scene windows", "job_id", job.ID, "error", err)
	}

	scenes, err := w.tool.DetectScenes(ctx, sourcePath, w.config.Render.SceneThreshold)
	if err != nil {
		slog.Warn("scene detection failed, planning from source head", "job_id", job.ID, "error", err)
		scenes = nil
	}
	windows := plan.Windows(scenes, duration, target, count)
	if len(windows) == 0 {
		return nil, "", fmt.Errorf("no viable clip window in a %.1fs source", duration)
	}
	out := make([]variantPlan, 0, len(windows))
	for _, win := range windows {
		out = append(out, variantPlan{window: win})
	}
	return out, "", nil
}

// autoPlan runs the highlight planner and validates its proposals.
func (w *ClipJobWorkflow) autoPlan(ctx context.Context, job *model.ClipJob, duration, target float64, count int, transcript *model.Transcript) ([]variantPlan, string, error) {
	defaults := plan.OverlayDefaults{
		PromoLabel: w.config.Planner.DefaultPromoLabel,
		CtaText:    w.config.Planner.DefaultCtaText,
		BrandTag:   w.config.Planner.DefaultBrandTag,
	}

	var resp *services.PlanResponse
	err := cloud.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var perr error
		resp, perr = w.planner.Plan(ctx, &services.PlanRequest{
			Transcript:     transcript,
			SourceDuration: duration,
			TargetSeconds:  target,
			VariantCount:   count,
			MinSeconds:     w.config.Planner.MinAutoSeconds,
			MaxSeconds:     w.config.Planner.MaxAutoSeconds,
			WantVoice:      job.Request.AutoVoice,
		})
		return perr
	})
	if err != nil {
		return nil, "", err
	}

	out := make([]variantPlan, 0, count)
	for i := range resp.Plans {
		if len(out) == count {
			break
		}
		p := resp.Plans[i]
		if verr := plan.ValidateAutoPlan(&p, duration, w.config.Planner.MinAutoSeconds, w.config.Planner.MaxAutoSeconds, defaults); verr != nil {
			slog.Warn("rejecting invalid planner window", "job_id", job.ID, "error", verr)
			continue
		}
		out = append(out, variantPlan{
			window: model.ClipWindow{Start: p.Start, End: p.End},
			copy:   &p,
		})
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("planner proposed no valid windows")
	}
	return out, resp.VoiceScript, nil
}

// prepareVoice synthesizes the voice-over track when one is requested. Any
// failure degrades the audio mode rather than failing the job.
func (w *ClipJobWorkflow) prepareVoice(jobCtx cor.Context, job *model.ClipJob, autoScript string) string {
	req := job.Request
	if req.AudioMode != model.AudioVoiceoverOnly && req.AudioMode != model.AudioVoiceoverMusic {
		return ""
	}
	script := req.VoiceScript
	if script == "" && req.AutoVoice {
		script = autoScript
	}
	if script == "" || w.voice == nil {
		return ""
	}

	namer := &model.TempNamer{Dir: w.config.Storage.TempDir, JobID: job.ID}
	path := namer.Next("voice", ".wav")
	err := cloud.Retry(jobCtx.GetContext(), 3, 500*time.Millisecond, func() error {
		return w.voice.Synthesize(jobCtx.GetContext(), script, path)
	})
	if err != nil {
		slog.Warn("voice synthesis failed, degrading audio mode", "job_id", job.ID, "error", err)
		return ""
	}
	jobCtx.AddTempFile(path)
	return path
}

// prepareMusic fetches the background music asset when one is requested.
// A missing track degrades the audio mode rather than failing the job.
func (w *ClipJobWorkflow) prepareMusic(jobCtx cor.Context, job *model.ClipJob) string {
	if job.Request.MusicKey == "" {
		return ""
	}
	namer := &model.TempNamer{Dir: w.config.Storage.TempDir, JobID: job.ID}
	path := namer.Next("music", ".m4a")
	if err := w.assetStore.Fetch(jobCtx.GetContext(), job.Request.MusicKey, path); err != nil {
		slog.Warn("music fetch failed, degrading audio mode", "job_id", job.ID, "music_key", job.Request.MusicKey, "error", err)
		return ""
	}
	jobCtx.AddTempFile(path)
	return path
}

// aspects returns the job's target aspects, defaulting to portrait.
func (w *ClipJobWorkflow) aspects(job *model.ClipJob) []model.Aspect {
	if len(job.Request.Aspects) == 0 {
		return []model.Aspect{model.AspectPortrait}
	}
	return job.Request.Aspects
}

func (w *ClipJobWorkflow) aspectCount(job *model.ClipJob) int {
	return len(w.aspects(job))
}

// renderAll fans the window-by-aspect variant matrix out across the worker
// pool and collects outputs in stable index order. Output indexes are
// assigned before rendering starts, so partial failures never renumber the
// surviving variants.
func (w *ClipJobWorkflow) renderAll(
	ctx context.Context,
	job *model.ClipJob,
	plans []variantPlan,
	sourcePath string,
	duration float64,
	hasAudio bool,
	transcript *model.Transcript,
	voicePath string,
	musicPath string,
) ([]*model.ClipOutput, []error) {
	aspects := w.aspects(job)
	req := job.Request

	states := make([]*commands.RenderState, 0, len(plans)*len(aspects))
	for wi, vp := range plans {
		for ai, aspect := range aspects {
			index := wi*len(aspects) + ai
			overlay := req.Overlay
			if vp.copy != nil {
				if overlay.Hook == "" {
					overlay.Hook = vp.copy.Hook
				}
				if overlay.PromoLabel == "" {
					overlay.PromoLabel = vp.copy.PromoLabel
				}
				if overlay.CtaText == "" {
					overlay.CtaText = vp.copy.CtaText
				}
				if overlay.BrandTag == "" {
					overlay.BrandTag = vp.copy.BrandTag
				}
			}
			states = append(states, &commands.RenderState{
				JobID:       job.ID,
				OwnerID:     job.OwnerID,
				Index:       index,
				WindowIndex: wi,
				Plan:        vp.copy,
				Namer:       &model.TempNamer{Dir: w.config.Storage.TempDir, JobID: job.ID, VariantIndex: index},
				Options: model.RenderOptions{
					SourcePath:     sourcePath,
					SourceDuration: duration,
					SourceHasAudio: hasAudio,
					Window:         vp.window,
					Aspect:         aspect,
					Transcript:     transcript,
					Overlay:        overlay,
					AudioMode:      req.AudioMode,
					MusicPath:      musicPath,
					VoicePath:      voicePath,
					MusicGainDb:    req.MusicGainDb,
					VoiceGainDb:    req.VoiceGainDb,
					MusicEQ:        req.MusicEQ,
					VoiceEQ:        req.VoiceEQ,
					PlaybackRate:   req.PlaybackRate,
				},
			})
		}
	}

	jobs := make(chan *commands.RenderState, len(states))
	results := make(chan *renderResult, len(states))

	var wg sync.WaitGroup
	for i := 0; i < w.fanOut; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for state := range jobs {
				output, err := w.renderer.Render(ctx, state)
				results <- &renderResult{index: state.Index, output: output, err: err}
			}
		}()
	}
	for _, state := range states {
		jobs <- state
	}
	close(jobs)
	wg.Wait()
	close(results)

	byIndex := make(map[int]*model.ClipOutput, len(states))
	var errs []error
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			errs = append(errs, r.err)
		} else {
			byIndex[r.index] = r.output
		}
		progress := 40 + (50*done)/len(states)
		_ = w.store.UpdateProgress(ctx, job.ID, model.StageRender, progress)
	}

	outputs := make([]*model.ClipOutput, 0, len(byIndex))
	for _, state := range states {
		if output, ok := byIndex[state.Index]; ok {
			outputs = append(outputs, output)
		}
	}
	return outputs, errs
}
