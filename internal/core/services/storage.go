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
// sources. This file defines the ObjectStore, the abstraction over Google
// Cloud Storage used to fetch source videos and publish rendered clips, plus
// signed-URL generation so browsers can stream outputs without credentials.
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
)

// ObjectStore abstracts the bucket operations the render pipeline needs. The
// worker only ever moves whole files: sources come down to scratch disk for
// ffmpeg, finished clips go back up.
type ObjectStore interface {
	// Fetch downloads the object at key into destPath.
	Fetch(ctx context.Context, key string, destPath string) error
	// Put uploads the file at srcPath to key, returning the byte size written.
	Put(ctx context.Context, key string, srcPath string, contentType string) (int64, error)
	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// SignedGetURL returns a time-limited download URL for the object.
	SignedGetURL(key string, expires time.Duration) (string, error)
	// URI returns the gs:// URI for the object, used to hand file references
	// to the generative models.
	URI(key string) string
}

// GCSObjectStore implements ObjectStore against a single GCS bucket.
type GCSObjectStore struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient // Used when URL signing requires the IAM Credentials API.
	Bucket        string
	SignerEmail   string // The service account email used to sign URLs.
}

// NewGCSObjectStore creates an object store bound to one bucket.
func NewGCSObjectStore(storageClient *storage.Client, iamClient *credentials.IamCredentialsClient, bucket string, signerEmail string) *GCSObjectStore {
	return &GCSObjectStore{
		StorageClient: storageClient,
		IAMClient:     iamClient,
		Bucket:        bucket,
		SignerEmail:   signerEmail,
	}
}

// Fetch streams the object to a local file. The file is written with a
// temporary handle and closed before return so ffmpeg sees complete bytes.
func (s *GCSObjectStore) Fetch(ctx context.Context, key string, destPath string) error {
	reader, err := s.StorageClient.Bucket(s.Bucket).Object(key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open gs://%s/%s: %w", s.Bucket, key, err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("download gs://%s/%s: %w", s.Bucket, key, err)
	}
	return out.Close()
}

// Put uploads a local file to the bucket and returns its byte size.
func (s *GCSObjectStore) Put(ctx context.Context, key string, srcPath string, contentType string) (int64, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	writer := s.StorageClient.Bucket(s.Bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	size, err := io.Copy(writer, in)
	if err != nil {
		_ = writer.Close()
		return 0, fmt.Errorf("upload gs://%s/%s: %w", s.Bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("finalize gs://%s/%s: %w", s.Bucket, key, err)
	}
	return size, nil
}

// Delete removes the object. ErrObjectNotExist is swallowed so replacing a
// partial output set is idempotent.
func (s *GCSObjectStore) Delete(ctx context.Context, key string) error {
	err := s.StorageClient.Bucket(s.Bucket).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return err
	}
	return nil
}

// SignedGetURL creates a time-limited V4 signed URL for downloading the
// object. Clients stream clips straight from GCS with it.
func (s *GCSObjectStore) SignedGetURL(key string, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}
	u, err := s.StorageClient.Bucket(s.Bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", s.Bucket, key, err)
	}
	return u, nil
}

// URI returns the gs:// URI for the object.
func (s *GCSObjectStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, key)
}
