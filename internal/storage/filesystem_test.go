package storage

import (
	"context"
	"errors"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx := context.Background()

	key := "99/pdf/my-query/1/tester.pdf.json"
	payload := []byte(`{"inProcess":true}`)
	if err := store.Write(ctx, key, payload, "application/json"); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("Read = %q, want %q", got, payload)
	}
}

func TestFileStoreReadMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if _, err := store.Read(context.Background(), "absent/key"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Read of missing key = %v, want ErrNotExist", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "../outside", "a/../../outside"} {
		if err := store.Write(ctx, key, []byte("x"), ""); err == nil {
			t.Fatalf("Write(%q) expected error", key)
		}
	}
}
