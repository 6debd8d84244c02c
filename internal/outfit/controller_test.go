package outfit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/repository"
)

// --- モック定義 ---

// mockBlobRepo はユーザー×名前のブロブをメモリに保持する。
type mockBlobRepo struct {
	mu    sync.Mutex
	blobs map[string]string // key: userID + "/" + name
	getFn func(ctx context.Context, userID, name string) (string, error)
	setFn func(ctx context.Context, userID, name, value string) error
}

func newMockBlobRepo() *mockBlobRepo {
	return &mockBlobRepo{blobs: make(map[string]string)}
}

func (m *mockBlobRepo) Get(ctx context.Context, userID, name string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[userID+"/"+name], nil
}

func (m *mockBlobRepo) Set(ctx context.Context, userID, name, value string) error {
	if m.setFn != nil {
		return m.setFn(ctx, userID, name, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[userID+"/"+name] = value
	return nil
}

var _ repository.BlobRepository = (*mockBlobRepo)(nil)

func newTestManager(blobs repository.BlobRepository) *Manager {
	return NewManager(blobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func getController(t *testing.T, m *Manager, userID string) *Controller {
	t.Helper()
	c, err := m.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Manager.Get() error = %v", err)
	}
	return c
}

// --- テスト ---

func TestAddToOutfit_AllowsDuplicates(t *testing.T) {
	c := getController(t, newTestManager(newMockBlobRepo()), "user-1")

	item := model.OutfitItem{ID: "1", Name: "Shirt", ImageURL: "http://example.com/shirt.png"}
	c.AddToOutfit(item)
	c.AddToOutfit(item)

	current := c.CurrentOutfit()
	if len(current) != 2 {
		t.Errorf("current len = %d, want 2", len(current))
	}
}

func TestRemoveFromOutfit_OutOfRange_NoOpReturnsFalse(t *testing.T) {
	c := getController(t, newTestManager(newMockBlobRepo()), "user-1")
	c.AddToOutfit(model.OutfitItem{ID: "1"})

	if c.RemoveFromOutfit(5) {
		t.Error("out-of-range removal must return false")
	}
	if c.RemoveFromOutfit(-1) {
		t.Error("negative index removal must return false")
	}
	if len(c.CurrentOutfit()) != 1 {
		t.Errorf("current len = %d, want 1", len(c.CurrentOutfit()))
	}
}

func TestAddRemoveNTimes_RoundTripsToEmpty(t *testing.T) {
	c := getController(t, newTestManager(newMockBlobRepo()), "user-1")

	for i := 0; i < 5; i++ {
		c.AddToOutfit(model.OutfitItem{ID: "1"})
	}
	for i := 0; i < 5; i++ {
		if !c.RemoveFromOutfit(0) {
			t.Fatalf("removal %d failed", i)
		}
	}
	if len(c.CurrentOutfit()) != 0 {
		t.Errorf("current len = %d, want 0", len(c.CurrentOutfit()))
	}
}

func TestSaveOutfit_Empty_LeavesSavedUntouched(t *testing.T) {
	blobs := newMockBlobRepo()
	m := newTestManager(blobs)
	c := getController(t, m, "user-1")

	c.AddToOutfit(model.OutfitItem{ID: "1"})
	if _, err := c.SaveOutfit(context.Background(), "First"); err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	// 保存直後は編集中が空なので、続けての保存は拒否される
	_, err := c.SaveOutfit(context.Background(), "Second")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeOutfitEmpty {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeOutfitEmpty)
	}
	if len(c.SavedOutfits()) != 1 {
		t.Errorf("saved len = %d, want 1", len(c.SavedOutfits()))
	}
}

func TestSaveOutfit_PrependsAndClearsCurrent(t *testing.T) {
	c := getController(t, newTestManager(newMockBlobRepo()), "user-1")

	c.AddToOutfit(model.OutfitItem{ID: "1"})
	first, err := c.SaveOutfit(context.Background(), "First")
	if err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	c.AddToOutfit(model.OutfitItem{ID: "2"})
	second, err := c.SaveOutfit(context.Background(), "Second")
	if err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	saved := c.SavedOutfits()
	if len(saved) != 2 {
		t.Fatalf("saved len = %d, want 2", len(saved))
	}
	if saved[0].ID != second.ID || saved[1].ID != first.ID {
		t.Errorf("saved order = [%s %s], want newest first", saved[0].ID, saved[1].ID)
	}
	if len(c.CurrentOutfit()) != 0 {
		t.Error("current outfit must be cleared after save")
	}
}

func TestSaveOutfit_PersistsWholeListAsJSON(t *testing.T) {
	blobs := newMockBlobRepo()
	c := getController(t, newTestManager(blobs), "user-1")

	c.AddToOutfit(model.OutfitItem{ID: "1", Name: "Shirt", ImageURL: "http://example.com/shirt.png"})
	if _, err := c.SaveOutfit(context.Background(), "Party"); err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	raw, _ := blobs.Get(context.Background(), "user-1", "saved-outfits")
	var stored []model.Outfit
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored blob is not valid JSON: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != "Party" {
		t.Errorf("stored = %+v, want one outfit named Party", stored)
	}
	if stored[0].Items[0].ImageURL != "http://example.com/shirt.png" {
		t.Errorf("stored item imageUrl = %q", stored[0].Items[0].ImageURL)
	}
}

func TestSaveOutfit_PersistFailure_KeepsStateUnchanged(t *testing.T) {
	blobs := newMockBlobRepo()
	blobs.setFn = func(ctx context.Context, userID, name, value string) error {
		return errors.New("db down")
	}
	c := getController(t, newTestManager(blobs), "user-1")

	c.AddToOutfit(model.OutfitItem{ID: "1"})
	if _, err := c.SaveOutfit(context.Background(), "First"); err == nil {
		t.Fatal("expected error when persistence fails")
	}

	if len(c.SavedOutfits()) != 0 {
		t.Error("saved list must stay empty after failed persist")
	}
	if len(c.CurrentOutfit()) != 1 {
		t.Error("current outfit must stay intact after failed persist")
	}
}

func TestDeleteOutfit_RoundTrip(t *testing.T) {
	blobs := newMockBlobRepo()
	c := getController(t, newTestManager(blobs), "user-1")

	c.AddToOutfit(model.OutfitItem{ID: "1"})
	saved, err := c.SaveOutfit(context.Background(), "First")
	if err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	if err := c.DeleteOutfit(context.Background(), saved.ID); err != nil {
		t.Fatalf("DeleteOutfit() error = %v", err)
	}
	if len(c.SavedOutfits()) != 0 {
		t.Errorf("saved len = %d, want 0", len(c.SavedOutfits()))
	}

	raw, _ := blobs.Get(context.Background(), "user-1", "saved-outfits")
	if raw != "[]" {
		t.Errorf("stored blob = %q, want empty JSON array", raw)
	}
}

func TestDeleteOutfit_Unknown_ReturnsNotFound(t *testing.T) {
	c := getController(t, newTestManager(newMockBlobRepo()), "user-1")

	err := c.DeleteOutfit(context.Background(), "no-such-id")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeOutfitNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeOutfitNotFound)
	}
}

func TestManager_CorruptedBlob_LoadsEmptyList(t *testing.T) {
	blobs := newMockBlobRepo()
	blobs.blobs["user-1/saved-outfits"] = "{not json"

	c := getController(t, newTestManager(blobs), "user-1")

	if len(c.SavedOutfits()) != 0 {
		t.Errorf("saved len = %d, want 0 for corrupted blob", len(c.SavedOutfits()))
	}
}

func TestManager_ReusesControllerUntilRelease(t *testing.T) {
	m := newTestManager(newMockBlobRepo())

	c1 := getController(t, m, "user-1")
	c1.AddToOutfit(model.OutfitItem{ID: "1"})

	c2 := getController(t, m, "user-1")
	if len(c2.CurrentOutfit()) != 1 {
		t.Error("expected same controller instance to be reused")
	}

	// サインアウトで編集中の状態は失われる
	m.Release("user-1")
	c3 := getController(t, m, "user-1")
	if len(c3.CurrentOutfit()) != 0 {
		t.Error("current outfit must be empty after release")
	}
}

func TestEndToEnd_UnnamedSave_BecomesOutfit1(t *testing.T) {
	blobs := newMockBlobRepo()
	c := getController(t, newTestManager(blobs), "user-1")

	if len(c.SavedOutfits()) != 0 {
		t.Fatal("precondition: no saved outfits")
	}

	c.AddToOutfit(model.OutfitItem{ID: "a", Name: "Shirt"})
	c.AddToOutfit(model.OutfitItem{ID: "b", Name: "Pants"})

	saved, err := c.SaveOutfit(context.Background(), "")
	if err != nil {
		t.Fatalf("SaveOutfit() error = %v", err)
	}

	if saved.Name != "Outfit 1" {
		t.Errorf("name = %q, want %q", saved.Name, "Outfit 1")
	}
	if len(saved.Items) != 2 || saved.Items[0].ID != "a" || saved.Items[1].ID != "b" {
		t.Errorf("items = %+v, want [a b] in insertion order", saved.Items)
	}
	if len(c.CurrentOutfit()) != 0 {
		t.Error("current outfit must be empty after save")
	}

	all := c.SavedOutfits()
	if len(all) != 1 {
		t.Errorf("saved len = %d, want 1", len(all))
	}
}
