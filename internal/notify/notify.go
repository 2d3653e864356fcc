// Package notify delivers user-facing notifications to pluggable sinks.
// Sinks are PLUGINS: the selection engine only knows the Publish call.
package notify

import (
	"context"

	"github.com/deeptube/deeptube/internal/model"
)

// Sink receives notifications.
type Sink interface {
	// ID returns a unique identifier for this sink instance.
	ID() string

	// Notify delivers a single notification.
	Notify(ctx context.Context, n model.Notification) error
}
