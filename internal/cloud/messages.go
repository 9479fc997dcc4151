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

// Package cloud provides components for interacting with Google Cloud services.
// This file defines the message payloads that flow through Pub/Sub between the
// API surface and the render workers.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// ClipJobMessage is the payload published to the render topic when a job is
// queued, and redelivered by the reaper when a worker strands a job. Attempt
// is informational; the authoritative requeue count lives on the job record.
type ClipJobMessage struct {
	JobID   string `json:"job_id"`
	Attempt int    `json:"attempt"`
}

// Marshal serializes the message for publishing.
func (m *ClipJobMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ParseClipJobMessage deserializes a Pub/Sub payload into a ClipJobMessage.
// A payload without a job id is malformed; redelivering it can never succeed.
func ParseClipJobMessage(data []byte) (*ClipJobMessage, error) {
	out := &ClipJobMessage{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, fmt.Errorf("job message missing job_id")
	}
	return out, nil
}

// JobPublisher queues a job for processing. The API server publishes on job
// creation; the reaper publishes when it requeues a stranded job.
type JobPublisher interface {
	PublishJob(ctx context.Context, msg *ClipJobMessage) error
}

// PubSubJobPublisher implements JobPublisher against the render topic.
type PubSubJobPublisher struct {
	Topic *pubsub.Topic
}

// NewPubSubJobPublisher creates a publisher bound to the given topic.
func NewPubSubJobPublisher(topic *pubsub.Topic) *PubSubJobPublisher {
	return &PubSubJobPublisher{Topic: topic}
}

// PublishJob publishes the message and waits for the server acknowledgment so
// callers know the job actually reached the queue.
func (p *PubSubJobPublisher) PublishJob(ctx context.Context, msg *ClipJobMessage) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	result := p.Topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	return err
}
