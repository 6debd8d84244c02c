package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore はローカルファイルシステムを使用したオブジェクトストア。
// キーはルートディレクトリ配下の相対パスにマッピングされ、
// 公開URLは {baseURL}/media/{key} の形式で払い出される。
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore はDiskStoreを生成する。ルートディレクトリが無ければ作成する。
// baseURLは末尾スラッシュなしのオリジン（例: "http://localhost:8080"）を指定する。
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &DiskStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// resolve はキーをルート配下の安全なファイルパスに解決する。
// パストラバーサルや絶対パスは拒否する。
func (s *DiskStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	// Clean後も安全側で検証する
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put はキー配下にデータを書き込む。既存キーは上書きされる。
func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("failed to write object: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close object file: %w", err)
	}
	return nil
}

// Open は指定キーのリーダーを返す。
func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// Delete は指定キーのオブジェクトを削除する。存在しないキーはエラーにしない。
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL はキーに対応する公開URLを返す。
func (s *DiskStore) PublicURL(key string) string {
	return s.baseURL + "/media/" + strings.TrimPrefix(path.Clean("/"+key), "/")
}

// List はプレフィックス配下の全オブジェクトを返す。
func (s *DiskStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return objects, nil
}

// MediaDir は公開配信用のルートディレクトリを返す。
func (s *DiskStore) MediaDir() string {
	return s.root
}

// compile-time interface check
var _ ObjectStore = (*DiskStore)(nil)
