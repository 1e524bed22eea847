package tform

import (
	"bytes"
	"context"
)

// ChannelWatcher is an in-process definition source fed with encoded
// documents. Consecutive identical payloads are delivered once, so a
// producer may republish its current document without churning the form.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher reading encoded documents from
// ch until ch closes or the watch context ends.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands ch to the
// Tracker unchanged, duplicates included. Pair it with Tracker.SyncMode for
// deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch implements Watcher.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	var last []byte
	return pump(ctx, w.ch, func(raw []byte) ([]byte, bool) {
		if last != nil && bytes.Equal(raw, last) {
			return nil, false
		}
		last = bytes.Clone(raw)
		return raw, true
	}), nil
}

// DocumentWatcher is a definition source for documents built in process,
// such as by an admin endpoint or a schema generator. Each document is
// encoded with the watcher's codec and decoded again by the Tracker, so it
// goes through the same validation as documents read from a file.
type DocumentWatcher struct {
	docs  <-chan *Document
	codec Codec
}

// NewDocumentWatcher creates a DocumentWatcher reading from docs. A nil
// codec encodes as YAML, which the Tracker's default codec reads.
func NewDocumentWatcher(docs <-chan *Document, codec Codec) *DocumentWatcher {
	if codec == nil {
		codec = YAMLCodec{}
	}
	return &DocumentWatcher{docs: docs, codec: codec}
}

// Watch implements Watcher. Nil documents and documents the codec cannot
// encode are skipped.
func (w *DocumentWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	return pump(ctx, w.docs, func(doc *Document) ([]byte, bool) {
		if doc == nil {
			return nil, false
		}
		raw, err := w.codec.Marshal(doc)
		if err != nil {
			return nil, false
		}
		return raw, true
	}), nil
}

// pump converts values from in on its own goroutine. The returned channel
// closes when in closes or ctx ends.
func pump[T any](ctx context.Context, in <-chan T, convert func(T) ([]byte, bool)) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				raw, keep := convert(v)
				if !keep {
					continue
				}
				select {
				case out <- raw:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
