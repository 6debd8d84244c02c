// Package storage はオブジェクトストアの抽象化と実装を提供する。
// 衣類アイテム・アバターの画像バイナリをキー単位で保存し、公開URLを払い出す。
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo はストア内のオブジェクト1件のメタ情報。
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ObjectStore はオブジェクトストレージ操作のインターフェース。
type ObjectStore interface {
	// Put はキー配下にデータを書き込む。既存キーは上書きされる。
	Put(ctx context.Context, key string, r io.Reader) error

	// Open は指定キーのリーダーを返す。見つからない場合はエラーを返す。
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete は指定キーのオブジェクトを削除する。存在しないキーはエラーにしない。
	Delete(ctx context.Context, key string) error

	// PublicURL はキーに対応する公開URLを返す。
	PublicURL(key string) string

	// List はプレフィックス配下の全オブジェクトを返す。
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
