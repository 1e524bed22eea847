// Package redis stores form definition documents in Redis and watches them
// through keyspace notifications.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	tform "github.com/lucasols/t-form"
)

// Watcher emits the document stored at a Redis key whenever it is written.
// Keyspace notifications must be enabled on the server:
//
//	CONFIG SET notify-keyspace-events KEA
type Watcher struct {
	client *redis.Client
	key    string
	db     int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDB sets the database index used in the keyspace channel name.
// Default: the client's configured DB.
func WithDB(db int) Option {
	return func(w *Watcher) {
		w.db = db
	}
}

// New creates a Watcher for key.
func New(client *redis.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
		db:     client.Options().DB,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch subscribes to the key's keyspace channel, emits the current document
// if the key exists, and then the new document after every write.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	channel := fmt.Sprintf("__keyspace@%d__:%s", w.db, w.key)
	pubsub := w.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		emit := func() bool {
			val, err := w.client.Get(ctx, w.key).Bytes()
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			select {
			case out <- val:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				switch msg.Payload {
				case "set", "mset", "setex", "psetex", "setnx", "setrange", "append":
					if !emit() {
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// Put validates doc, encodes it with codec and stores it at key. Watchers of
// key receive the new document.
func Put(ctx context.Context, client *redis.Client, key string, doc *tform.Document, codec tform.Codec) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("store document at %s: %w", key, err)
	}
	return nil
}

// Get loads and validates the document stored at key.
func Get(ctx context.Context, client *redis.Client, key string, codec tform.Codec) (*tform.Document, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load document from %s: %w", key, err)
	}
	return tform.DecodeDocument(data, codec)
}
