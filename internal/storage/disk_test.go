package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	return store
}

func TestDiskStore_PutAndOpen_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "fake image bytes"
	if err := store.Put(ctx, "wardrobe/user-1/123_shirt.png", strings.NewReader(content)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, err := store.Open(ctx, "wardrobe/user-1/123_shirt.png")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("content = %q, want %q", string(got), content)
	}
}

func TestDiskStore_Put_RejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	invalidKeys := []string{
		"",
		"../escape.png",
		"wardrobe/../../escape.png",
	}

	for _, key := range invalidKeys {
		if err := store.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
	}
}

func TestDiskStore_Delete_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "avatars/user-1/a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "avatars/user-1/a.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// 2回目の削除もエラーにならない
	if err := store.Delete(ctx, "avatars/user-1/a.png"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestDiskStore_PublicURL(t *testing.T) {
	store := newTestStore(t)

	got := store.PublicURL("wardrobe/user-1/123_shirt.png")
	want := "http://localhost:8080/media/wardrobe/user-1/123_shirt.png"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}

func TestDiskStore_List_FiltersByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"wardrobe/user-1/1_a.png",
		"wardrobe/user-2/2_b.png",
		"avatars/user-1/3_c.png",
	}
	for _, key := range keys {
		if err := store.Put(ctx, key, strings.NewReader("x")); err != nil {
			t.Fatalf("Put(%q) failed: %v", key, err)
		}
	}

	objects, err := store.List(ctx, "wardrobe/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("len(objects) = %d, want 2", len(objects))
	}
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, "wardrobe/") {
			t.Errorf("unexpected key %q in wardrobe/ listing", obj.Key)
		}
	}
}
