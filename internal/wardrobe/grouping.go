package wardrobe

import "github.com/hitoshi/closetly/internal/model"

// GroupByCategory はアイテム一覧からカテゴリ別マップを毎回ゼロから組み立てる。
// 差分更新は行わない。アイテムが無いカテゴリはキー自体が存在しない。
// 各カテゴリ内の順序は入力スライスの順序（作成日時の昇順）を保つ。
func GroupByCategory(items []model.WardrobeItem) model.WardrobeByCategory {
	grouped := make(model.WardrobeByCategory)
	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], item)
	}
	return grouped
}
