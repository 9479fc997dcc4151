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

// Package media owns everything the pipeline knows about the external media
// processor: argument-vector invocation of ffmpeg/ffprobe under deadlines,
// filter-graph construction for captions, overlays, audio mixing and aspect
// conversion, and the numeric duration/gain math. All invocation is argv
// based; no command line ever passes through a shell, so user-controlled
// overlay text and paths cannot inject options.
package media

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
)

// Tool is the surface the pipeline commands need from the media processor.
// The Runner implements it against real ffmpeg/ffprobe binaries; tests swap
// in a scriptable fake.
type Tool interface {
	// ProbeDuration returns the container duration of a local file or
	// time-limited remote URL in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// HasAudioStream reports whether the file carries at least one audio
	// stream.
	HasAudioStream(ctx context.Context, path string) (bool, error)

	// DetectScenes returns sorted, de-duplicated scene-change timestamps.
	// An empty result is valid.
	DetectScenes(ctx context.Context, path string, threshold float64) ([]float64, error)

	// Transcode runs the processor with the given argument vector plus the
	// output path appended as the final argument.
	Transcode(ctx context.Context, args []string, outPath string) error
}

// Runner invokes the ffmpeg and ffprobe binaries.
type Runner struct {
	ffmpeg       string
	ffprobe      string
	probeTimeout time.Duration // Deadline for probe and scene-detect calls.
	stageTimeout time.Duration // Deadline for transcoding stages.
}

// NewRunner builds a Runner, falling back to PATH lookup and sane deadlines
// when the zero values are passed.
func NewRunner(ffmpegPath, ffprobePath string, probeTimeout, stageTimeout time.Duration) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}
	if stageTimeout <= 0 {
		stageTimeout = 10 * time.Minute
	}
	return &Runner{ffmpeg: ffmpegPath, ffprobe: ffprobePath, probeTimeout: probeTimeout, stageTimeout: stageTimeout}
}

func (r *Runner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, &model.ProbeError{Path: path, Err: fmt.Errorf("%w\n%s", err, tail(b))}
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &model.ProbeError{Path: path, Err: fmt.Errorf("parse duration %q: %w", s, err)}
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec <= 0 {
		return 0, &model.ProbeError{Path: path, Err: fmt.Errorf("non-positive duration %q", s)}
	}
	return sec, nil
}

func (r *Runner) HasAudioStream(ctx context.Context, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return false, &model.ProbeError{Path: path, Err: fmt.Errorf("%w\n%s", err, tail(b))}
	}
	return strings.TrimSpace(string(b)) != "", nil
}

func (r *Runner) DetectScenes(ctx context.Context, path string, threshold float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpeg,
		"-hide_banner",
		"-i", path,
		"-vf", fmt.Sprintf("select=gt(scene\\,%s),showinfo", FormatSeconds(threshold)),
		"-f", "null", "-",
	)
	// showinfo writes its frame annotations to stderr; a non-zero exit still
	// fails the call because partial diagnostics are not trustworthy.
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detect: %w\n%s", err, tail(b))
	}
	return ParseSceneTimes(string(b)), nil
}

func (r *Runner) Transcode(ctx context.Context, args []string, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffmpeg, append(append([]string{}, args...), outPath)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", strings.Join(firstN(args, 6), " "), err, tail(b))
	}
	return nil
}

// ParseSceneTimes extracts the pts_time annotations from showinfo diagnostic
// output, sorted ascending with duplicates removed. The tool itself gives no
// ordering guarantee.
func ParseSceneTimes(out string) []float64 {
	seen := make(map[int64]bool)
	var times []float64
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, "pts_time:")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("pts_time:"):]
		end := strings.IndexAny(rest, " \t")
		if end >= 0 {
			rest = rest[:end]
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) || ts < 0 {
			continue
		}
		// De-duplicate at millisecond resolution; showinfo repeats frames on
		// some stream layouts.
		key := int64(math.Round(ts * 1000))
		if seen[key] {
			continue
		}
		seen[key] = true
		times = append(times, ts)
	}
	sort.Float64s(times)
	return times
}

// BuildCutArgs trims the source to the window using start+duration rather
// than start+end so the cut length never re-derives duration under floating
// point drift.
func BuildCutArgs(sourcePath string, startSec, durationSec float64) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", FormatSeconds(startSec),
		"-t", FormatSeconds(durationSec),
		"-i", sourcePath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
	}
}

// BuildSubtitleBurnArgs burns the given subtitle file into the clip. Audio is
// copied untouched.
func BuildSubtitleBurnArgs(inPath, subtitlePath string) []string {
	return []string{
		"-y", "-hide_banner",
		"-i", inPath,
		"-vf", "subtitles=" + EscapeFilterPath(subtitlePath),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
	}
}

// FormatSeconds renders a second count the way ffmpeg arguments expect.
func FormatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// EscapeFilterPath escapes a file path for embedding in a filter argument,
// where backslashes and colons are structural.
func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func firstN(args []string, n int) []string {
	if len(args) <= n {
		return args
	}
	return args[:n]
}

// tail truncates process output for error messages; ffmpeg banners and
// progress lines can run to hundreds of kilobytes.
func tail(b []byte) string {
	const keep = 2048
	if len(b) <= keep {
		return string(b)
	}
	return "..." + string(b[len(b)-keep:])
}
