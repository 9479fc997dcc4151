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

// Package test provides fakes and helpers for the application's test suite.
// The fakes stand in for the external collaborators (ffmpeg, GCS, the
// generative models) so the workflow and command tests can run hermetically.
package test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-clip-pilot/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// HandleErr fails the test when err is non-nil. A convenience to reduce
// boilerplate error-checking in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// FakeTool is a scriptable media.Tool. Each transcode writes a small marker
// file at the output path so downstream stages see a real file, and records
// the argument vector for assertions.
type FakeTool struct {
	mu sync.Mutex

	Duration float64
	HasAudio bool
	Scenes   []float64

	ProbeErr   error
	SceneErr   error
	AudioErr   error
	Transcoded [][]string

	// FailOn makes Transcode fail when the argument vector contains the
	// given substring, so tests can break one pipeline stage selectively.
	FailOn string
}

var _ media.Tool = (*FakeTool)(nil)

func (f *FakeTool) ProbeDuration(_ context.Context, _ string) (float64, error) {
	if f.ProbeErr != nil {
		return 0, f.ProbeErr
	}
	return f.Duration, nil
}

func (f *FakeTool) HasAudioStream(_ context.Context, _ string) (bool, error) {
	if f.AudioErr != nil {
		return false, f.AudioErr
	}
	return f.HasAudio, nil
}

func (f *FakeTool) DetectScenes(_ context.Context, _ string, _ float64) ([]float64, error) {
	if f.SceneErr != nil {
		return nil, f.SceneErr
	}
	return f.Scenes, nil
}

func (f *FakeTool) Transcode(_ context.Context, args []string, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailOn != "" {
		for _, a := range args {
			if a == f.FailOn {
				return fmt.Errorf("scripted failure on %q", f.FailOn)
			}
		}
	}
	recorded := make([]string, len(args), len(args)+1)
	copy(recorded, args)
	f.Transcoded = append(f.Transcoded, append(recorded, outPath))
	return os.WriteFile(outPath, []byte("fake media"), 0o644)
}

// Calls returns a copy of the recorded transcode argument vectors.
func (f *FakeTool) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.Transcoded))
	copy(out, f.Transcoded)
	return out
}

// MemoryObjectStore is an in-memory services.ObjectStore keyed by object
// name. Fetch writes the stored bytes to the destination path; Put reads the
// source file into the map.
type MemoryObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Bucket  string
}

var _ services.ObjectStore = (*MemoryObjectStore)(nil)

func NewMemoryObjectStore(bucket string) *MemoryObjectStore {
	return &MemoryObjectStore{Objects: make(map[string][]byte), Bucket: bucket}
}

func (s *MemoryObjectStore) Fetch(_ context.Context, key string, destPath string) error {
	s.mu.Lock()
	data, ok := s.Objects[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (s *MemoryObjectStore) Put(_ context.Context, key string, srcPath string, _ string) (int64, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.Objects[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.Objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryObjectStore) SignedGetURL(key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example.com/%s/%s?ttl=%d", s.Bucket, key, int(expires.Seconds())), nil
}

func (s *MemoryObjectStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, key)
}

// FakeTranscriber returns a fixed transcript or error.
type FakeTranscriber struct {
	Transcript *model.Transcript
	Err        error
}

var _ services.Transcriber = (*FakeTranscriber)(nil)

func (f *FakeTranscriber) Transcribe(_ context.Context, _ string, _ string) (*model.Transcript, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Transcript, nil
}

// FakePlanner returns a fixed plan response or error and records the last
// request.
type FakePlanner struct {
	Response *services.PlanResponse
	Err      error
	LastReq  *services.PlanRequest
}

var _ services.ClipPlanner = (*FakePlanner)(nil)

func (f *FakePlanner) Plan(_ context.Context, req *services.PlanRequest) (*services.PlanResponse, error) {
	f.LastReq = req
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Response, nil
}

// FakeVoice writes a marker WAV file or fails.
type FakeVoice struct {
	Err     error
	Scripts []string
}

var _ services.VoiceSynthesizer = (*FakeVoice)(nil)

func (f *FakeVoice) Synthesize(_ context.Context, script string, outPath string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Scripts = append(f.Scripts, script)
	return os.WriteFile(outPath, []byte("RIFF fake"), 0o644)
}

// SpeechTranscript builds a transcript with one segment per entry, each
// entry formatted as start, end, text.
func SpeechTranscript(segments ...model.Segment) *model.Transcript {
	return &model.Transcript{Segments: segments}
}

// RecordingPublisher captures published job messages in order.
type RecordingPublisher struct {
	mu       sync.Mutex
	Messages []*cloud.ClipJobMessage
	Err      error
}

var _ cloud.JobPublisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) PublishJob(_ context.Context, msg *cloud.ClipJobMessage) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	p.Messages = append(p.Messages, msg)
	p.mu.Unlock()
	return nil
}
