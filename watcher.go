package tform

import "context"

// Watcher observes a definition source and emits raw documents on a channel.
// Implementations must emit the current document as soon as Watch is called
// so a Tracker can apply it on Start.
type Watcher interface {
	// Watch begins observing the source. The returned channel is closed when
	// ctx is canceled or the source fails for good.
	Watch(ctx context.Context) (<-chan []byte, error)
}
