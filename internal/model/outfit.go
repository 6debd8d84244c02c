// Package model はドメインモデルを定義する。
package model

// OutfitItem はアウトフィットに含まれる衣類アイテムのスナップショット。
// 保存時点の名前と画像URLを保持し、元アイテムの削除による影響を受けない。
// JSONタグはクライアントのローカルストレージ形式と互換。
type OutfitItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// Outfit は名前付きのアイテム順序列を表す。
// IDはクライアント生成（保存時刻のUnixMilliを文字列化したもの）。
// 保存済みアウトフィット全体は1つのJSON配列として直列化される。
type Outfit struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Items     []OutfitItem `json:"items"`
	CreatedAt string       `json:"createdAt"`
}
