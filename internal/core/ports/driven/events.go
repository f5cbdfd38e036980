package driven

import (
	"context"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// EventSource streams debounced filesystem change events.
// Backed by fsnotify; bursts of raw events for one path within the
// debounce window are collapsed before they reach the channel.
type EventSource interface {
	// Subscribe starts watching the given roots and returns the event
	// channel. The channel closes when ctx is cancelled or the source
	// is closed. Recursive subscriptions pick up directories created
	// after the subscription started.
	Subscribe(ctx context.Context, roots []string, recursive bool) (<-chan domain.FileEvent, error)

	// Close stops watching and releases resources.
	Close() error
}
