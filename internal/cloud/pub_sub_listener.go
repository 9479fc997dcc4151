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
// This file defines a generic, reusable Pub/Sub message listener. It abstracts
// the mechanics of receiving messages from a subscription and delegates the
// actual processing to a "Command", which for the render topic is the clip job
// workflow trigger.
//
// Logic Flow:
//  1. A PubSubListener is created with a client and a subscription ID.
//  2. A Command (the processing chain) is attached to the listener.
//  3. Listen starts a background goroutine that waits for messages.
//  4. Each message is handed to the attached Command.
//  5. The message is Ack'd only when the Command completes without errors,
//     giving at-least-once delivery into the job workflow. The workflow's
//     claim step makes redelivery safe.
//
// Structs:
//   - PubSubListener: Manages the connection to a subscription and holds the
//     command that will process incoming messages.
//
// Functions:
//   - NewPubSubListener: Constructor for a new PubSubListener.
//   - SetCommand: Attaches a processing command to the listener.
//   - Listen: Starts the background receive loop.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-clip-pilot/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener encapsulates the components needed to listen to a specific
// Pub/Sub subscription. Listeners have a life-cycle independent of individual
// API requests, so they live in the cloud package rather than the server.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls messages from.
	command      cor.Command          // The command to execute for each message received.
}

// NewPubSubListener creates a PubSubListener for the given subscription ID.
// The command may be nil at construction; the server attaches it once the
// workflow chains are assembled.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)

	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command to the listener. It only takes effect when no
// command has been set, so the initial wiring cannot be overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts the asynchronous receive loop in a background goroutine so the
// server can keep handling API requests. Canceling ctx stops the loop.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening for clip jobs", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("job-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-job-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))

			// The chain context carries the raw payload into the trigger
			// command, which parses it and drives the job workflow.
			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for _, e := range chainCtx.GetErrors() {
					slog.Error("error executing job chain", "error", e)
				}
				// Not Ack'ing lets the message be redelivered under the
				// subscription's retry policy.
			}

			span.End()
		})

		if err != nil {
			slog.Error("error receiving data", "error", err)
		}
	}()
}
