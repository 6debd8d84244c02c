// Package model はドメインモデルを定義する。
package model

import "time"

// Category は衣類アイテムのカテゴリを表す。
type Category string

const (
	// CategoryDresses はワンピース・ドレス。
	CategoryDresses Category = "dresses"
	// CategoryShirts はシャツ・トップス。
	CategoryShirts Category = "shirts"
	// CategorySweaters はセーター・ニット。
	CategorySweaters Category = "sweaters"
	// CategoryJackets はジャケット・アウター。
	CategoryJackets Category = "jackets"
	// CategoryPants はパンツ・ボトムス。
	CategoryPants Category = "pants"
	// CategoryShoes は靴。
	CategoryShoes Category = "shoes"
	// CategoryAccessories はアクセサリー。
	CategoryAccessories Category = "accessories"
)

// Categories は表示順に並んだ全カテゴリ。
// プレゼンテーション層はグルーピング結果の内容に関わらず、
// この固定順序でカテゴリを描画する。
var Categories = []Category{
	CategoryDresses,
	CategoryShirts,
	CategorySweaters,
	CategoryJackets,
	CategoryPants,
	CategoryShoes,
	CategoryAccessories,
}

// IsValidCategory はカテゴリが定義済みのいずれかであるかを返す。
func IsValidCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// WardrobeItem はユーザー所有の衣類アイテム1件を表す。
// ImageURLはオブジェクトストアの公開URLを指す。
type WardrobeItem struct {
	ID        string
	UserID    string
	Name      string
	Category  Category
	ImageURL  string
	CreatedAt time.Time
}

// WardrobeByCategory はカテゴリごとにグルーピングされたアイテム一覧。
// アイテムが1件もないカテゴリはキー自体が存在しない。
type WardrobeByCategory map[Category][]WardrobeItem

// Avatar は仮想試着用のアバター画像レコードを表す。
// ユーザーにつき0..1件を意図しているが、書き込み時に一意性は
// 強制されない（読み取りは先頭一致を採用する）。
type Avatar struct {
	ID        string
	UserID    string
	ImageURL  string
	CreatedAt time.Time
}
