package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryPutRejectsOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "lectures/a/1_notes.mp3", strings.NewReader("abc"), 3, "audio/mpeg"); err != nil {
		t.Fatalf("first put failed: %v", err)
	}
	if err := m.Put(ctx, "lectures/a/1_notes.mp3", strings.NewReader("xyz"), 3, "audio/mpeg"); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("second put: got %v, want ErrKeyExists", err)
	}

	rc, err := m.Get(ctx, "lectures/a/1_notes.mp3")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("stored payload = %q, want the first write to win", data)
	}
}

func TestMemoryGetMissingKey(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "lectures/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: got %v, want ErrNotFound", err)
	}
}

func TestMemoryRemoveMissingKeyIsNotAnError(t *testing.T) {
	m := NewMemory()
	if err := m.Remove(context.Background(), "lectures/missing"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}
