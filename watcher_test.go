package tform

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func receive(t *testing.T, out <-chan []byte) []byte {
	t.Helper()
	select {
	case doc, ok := <-out:
		if !ok {
			t.Fatal("channel closed")
		}
		return doc
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for document")
	}
	return nil
}

func TestChannelWatcher_ForwardsDocuments(t *testing.T) {
	source := make(chan []byte, 2)
	source <- []byte(`{"fields":{"a":{"initialValue":1}}}`)
	source <- []byte(`{"fields":{"b":{"initialValue":2}}}`)
	close(source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := string(receive(t, out)); got != `{"fields":{"a":{"initialValue":1}}}` {
		t.Errorf("first document = %s", got)
	}
	if got := string(receive(t, out)); got != `{"fields":{"b":{"initialValue":2}}}` {
		t.Errorf("second document = %s", got)
	}

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to close after source closed")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for close")
	}
}

func TestChannelWatcher_ClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out, err := NewChannelWatcher(make(chan []byte)).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for close")
	}
}

func TestSyncChannelWatcher_ReturnsSource(t *testing.T) {
	source := make(chan []byte, 1)
	out, err := NewSyncChannelWatcher(source).Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	source <- []byte("doc")
	select {
	case doc := <-out:
		if string(doc) != "doc" {
			t.Errorf("got %s", doc)
		}
	default:
		t.Error("expected the source channel to be returned unchanged")
	}
}

func TestChannelWatcher_DropsRepeatedDocuments(t *testing.T) {
	source := make(chan []byte, 4)
	source <- []byte("a")
	source <- []byte("a")
	source <- []byte("b")
	source <- []byte("a")
	close(source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := NewChannelWatcher(source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var got []string
	for doc := range out {
		got = append(got, string(doc))
	}
	if want := []string{"a", "b", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDocumentWatcher_EncodesDocuments(t *testing.T) {
	docs := make(chan *Document, 3)
	docs <- nil
	docs <- &Document{Form: "signup", Fields: map[string]FieldDocument{
		"name": {InitialValue: RawValue{Value: "", Set: true}, Required: true},
	}}
	close(docs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := NewDocumentWatcher(docs, JSONCodec{}).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	doc, err := DecodeDocument(receive(t, out), JSONCodec{})
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	if doc.Form != "signup" || !doc.Fields["name"].Required || !doc.Fields["name"].InitialValue.Set {
		t.Errorf("unexpected document: %+v", doc)
	}

	if _, ok := <-out; ok {
		t.Error("expected channel to close after the source closed")
	}
}

func TestFileWatcher_EmitsInitialAndWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	if err := os.WriteFile(path, []byte("fields: {a: {initialValue: 1}}"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewFileWatcher(path)
	if w.Path() != path {
		t.Errorf("Path() = %s", w.Path())
	}
	out, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := string(receive(t, out)); got != "fields: {a: {initialValue: 1}}" {
		t.Errorf("initial = %s", got)
	}

	if err := os.WriteFile(path, []byte("fields: {a: {initialValue: 2}}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := string(receive(t, out)); got != "fields: {a: {initialValue: 2}}" {
		t.Errorf("after write = %s", got)
	}
}

func TestFileWatcher_FollowsRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "form.json")
	if err := os.WriteFile(path, []byte(`{"v":1}`), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	receive(t, out)

	tmp := filepath.Join(dir, ".form.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"v":2}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	if got := string(receive(t, out)); got != `{"v":2}` {
		t.Errorf("after rename = %s", got)
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "form.yaml")).Watch(context.Background())
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
