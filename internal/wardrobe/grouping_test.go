package wardrobe

import (
	"testing"

	"github.com/hitoshi/closetly/internal/model"
)

func TestGroupByCategory_Empty_ReturnsEmptyMap(t *testing.T) {
	grouped := GroupByCategory(nil)

	if grouped == nil {
		t.Fatal("expected non-nil map")
	}
	if len(grouped) != 0 {
		t.Errorf("len = %d, want 0", len(grouped))
	}
}

func TestGroupByCategory_AbsentCategoriesAbsentFromMap(t *testing.T) {
	items := []model.WardrobeItem{
		{ID: "1", Category: model.CategoryShirts},
		{ID: "2", Category: model.CategoryShoes},
	}

	grouped := GroupByCategory(items)

	if len(grouped) != 2 {
		t.Errorf("len = %d, want 2", len(grouped))
	}
	if _, ok := grouped[model.CategoryDresses]; ok {
		t.Error("dresses must be absent, not empty")
	}
}

func TestGroupByCategory_PreservesInsertionOrderWithinCategory(t *testing.T) {
	items := []model.WardrobeItem{
		{ID: "1", Category: model.CategoryShirts},
		{ID: "2", Category: model.CategoryPants},
		{ID: "3", Category: model.CategoryShirts},
		{ID: "4", Category: model.CategoryShirts},
	}

	grouped := GroupByCategory(items)

	shirts := grouped[model.CategoryShirts]
	if len(shirts) != 3 {
		t.Fatalf("shirts len = %d, want 3", len(shirts))
	}
	for i, wantID := range []string{"1", "3", "4"} {
		if shirts[i].ID != wantID {
			t.Errorf("shirts[%d].ID = %q, want %q", i, shirts[i].ID, wantID)
		}
	}
}

func TestGroupByCategory_FullRebuildAcrossSnapshots(t *testing.T) {
	items := []model.WardrobeItem{
		{ID: "1", Category: model.CategoryShirts},
		{ID: "2", Category: model.CategoryShirts},
	}

	first := GroupByCategory(items)

	// 1件削除した状態から再構築すると、前の結果の影響を受けない
	second := GroupByCategory(items[:1])

	if len(first[model.CategoryShirts]) != 2 {
		t.Errorf("first shirts len = %d, want 2", len(first[model.CategoryShirts]))
	}
	if len(second[model.CategoryShirts]) != 1 {
		t.Errorf("second shirts len = %d, want 1", len(second[model.CategoryShirts]))
	}

	// 全削除後は空マップになる
	third := GroupByCategory(nil)
	if len(third) != 0 {
		t.Errorf("third len = %d, want 0", len(third))
	}
}

func TestCategories_FixedDisplayOrder(t *testing.T) {
	want := []model.Category{
		model.CategoryDresses,
		model.CategoryShirts,
		model.CategorySweaters,
		model.CategoryJackets,
		model.CategoryPants,
		model.CategoryShoes,
		model.CategoryAccessories,
	}
	if len(model.Categories) != len(want) {
		t.Fatalf("len(Categories) = %d, want %d", len(model.Categories), len(want))
	}
	for i, c := range want {
		if model.Categories[i] != c {
			t.Errorf("Categories[%d] = %q, want %q", i, model.Categories[i], c)
		}
	}
}
