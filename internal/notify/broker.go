// Package notify fans out user account events to interested sinks.
//
// The broker is an explicit dependency: services receive one at
// construction time and publish to it, nothing goes through package
// level state. Two implementations are provided: an in-process Hub for
// a single instance and a Redis backed broker for multi-instance
// deployments.
package notify

import (
	"context"

	"github.com/akarpov/userhub/internal/models"
)

type Broker interface {
	// Publish delivers the event to all current subscribers
	Publish(ctx context.Context, event models.Event) error

	// Subscribe registers a new sink. The subscription is released by the
	// returned cancel func or by ctx cancellation, whichever happens first.
	// Calling cancel anyway is always safe.
	Subscribe(ctx context.Context) (<-chan models.Event, func())
}

// Discard is a Broker that drops everything. Used when a service is
// wired without a real broker, e.g. in tests.
var Discard Broker = discardBroker{}

type discardBroker struct{}

func (discardBroker) Publish(ctx context.Context, event models.Event) error {
	return nil
}

func (discardBroker) Subscribe(ctx context.Context) (<-chan models.Event, func()) {
	ch := make(chan models.Event)
	return ch, func() {}
}
