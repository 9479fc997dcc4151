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
// source acquisition command: it materializes a job's source video on local
// disk, either from the source bucket or from a direct URL.
//
// ffmpeg can be particular about file extensions, so after the download the
// file's real container type is sniffed with the `filetype` library and the
// temp file is renamed to carry the matching extension before probing.
package commands

import (
	gocontext "context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/services"
)

// SourceRef tells the download command where a job's source lives. Exactly
// one of Key or URL is set; the API layer enforces the exclusivity.
type SourceRef struct {
	Key string // Object key in the source bucket.
	URL string // Direct HTTP(S) URL.
}

// SourceDownload fetches the job's source video to a local temp file.
type SourceDownload struct {
	cor.BaseCommand
	store      services.ObjectStore // The source bucket.
	httpClient *http.Client
	tempDir    string // Scratch directory; empty means the OS default.
}

// NewSourceDownload is the constructor for the download command.
func NewSourceDownload(name string, store services.ObjectStore, httpClient *http.Client, tempDir string) *SourceDownload {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SourceDownload{
		BaseCommand: *cor.NewBaseCommand(name),
		store:       store,
		httpClient:  httpClient,
		tempDir:     tempDir,
	}
}

// Execute downloads the source and emits the local path.
func (c *SourceDownload) Execute(context cor.Context) {
	ref, ok := context.Get(c.GetInputParam()).(*SourceRef)
	if !ok || (ref.Key == "" && ref.URL == "") {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no source reference provided"))
		return
	}

	tempFile, err := os.CreateTemp(c.tempDir, "clippilot-source-")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}
	path := tempFile.Name()
	_ = tempFile.Close()
	context.AddTempFile(path)

	if ref.Key != "" {
		err = c.store.Fetch(context.GetContext(), ref.Key, path)
	} else {
		err = c.fetchURL(context.GetContext(), ref.URL, path)
	}
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("source download failed: %w", err))
		return
	}

	// Rename to the sniffed extension so ffmpeg gets a container hint.
	if typed, err := c.withExtension(path); err == nil {
		path = typed
		context.AddTempFile(path)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), path)
}

// fetchURL streams a direct URL to the local file.
func (c *SourceDownload) fetchURL(ctx gocontext.Context, url string, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("source URL returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// withExtension sniffs the file's container type and renames it to carry the
// matching extension. Unknown types keep the bare temp name.
func (c *SourceDownload) withExtension(path string) (string, error) {
	head := make([]byte, 261)
	f, err := os.Open(path)
	if err != nil {
		return path, err
	}
	n, _ := io.ReadFull(f, head)
	_ = f.Close()

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return path, fmt.Errorf("unknown container type")
	}
	typed := path + "." + kind.Extension
	if err := os.Rename(path, typed); err != nil {
		return path, err
	}
	return typed, nil
}
