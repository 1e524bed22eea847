package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	tform "github.com/lucasols/t-form"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })

	if err := client.ConfigSet(ctx, "notify-keyspace-events", "KEA").Err(); err != nil {
		t.Fatalf("failed to enable keyspace notifications: %v", err)
	}
	return client
}

func next(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for document")
	}
	return nil
}

func TestWatcher_EmitsInitialAndChanges(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	key := "forms:signup"
	if err := client.Set(ctx, key, `{"fields":{"a":{"initialValue":1}}}`, 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}

	ch, err := New(client, key).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := string(next(t, ch)); got != `{"fields":{"a":{"initialValue":1}}}` {
		t.Errorf("initial = %s", got)
	}

	if err := client.Set(ctx, key, `{"fields":{"a":{"initialValue":2}}}`, 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := string(next(t, ch)); got != `{"fields":{"a":{"initialValue":2}}}` {
		t.Errorf("after set = %s", got)
	}
}

func TestWatcher_MissingKeyWaitsForFirstWrite(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	ch, err := New(client, "forms:late").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := client.Set(ctx, "forms:late", "fields: {a: {initialValue: x}}", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := string(next(t, ch)); got != "fields: {a: {initialValue: x}}" {
		t.Errorf("first = %s", got)
	}
}

func TestPutGetAndTracker(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	key := "forms:profile"
	doc := &tform.Document{
		Form: "profile",
		Fields: map[string]tform.FieldDocument{
			"email": {
				InitialValue: tform.RawValue{Value: "", Set: true},
				Required:     true,
				Rules:        []tform.RuleDocument{{Tag: "email", Message: "Invalid email"}},
			},
		},
	}
	if err := Put(ctx, client, key, doc, tform.JSONCodec{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	loaded, err := Get(ctx, client, key, tform.JSONCodec{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded.Form != "profile" || !loaded.Fields["email"].Required {
		t.Errorf("unexpected document: %+v", loaded)
	}

	form, err := tform.New(tform.Definitions{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tracker := tform.NewTracker(form, New(client, key)).Codec(tform.JSONCodec{})
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, ok := form.Field("email"); !ok {
		t.Error("expected email field from redis document")
	}
}

func TestPut_RejectsInvalidDocument(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	err := Put(context.Background(), client, "k", &tform.Document{}, tform.JSONCodec{})
	if err == nil {
		t.Error("expected validation error before contacting redis")
	}
}
