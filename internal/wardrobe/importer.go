package wardrobe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/closetly/internal/model"
	"github.com/hitoshi/closetly/internal/security"
)

// Importer は外部URLからの画像インポートを提供する。
// 取得前のURL検証とダウンロード時のSSRF防止を必ず通す。
type Importer struct {
	service      *Service
	guard        security.SSRFGuardService
	fetchTimeout time.Duration
	maxFetchSize int64
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(service *Service, guard security.SSRFGuardService, fetchTimeout time.Duration, maxFetchSize int64) *Importer {
	return &Importer{
		service:      service,
		guard:        guard,
		fetchTimeout: fetchTimeout,
		maxFetchSize: maxFetchSize,
	}
}

// ImportItem は外部URLの画像を取得してアイテムとして登録する。
// 1. URLの静的検証（スキーム・ホスト・IP帯）
// 2. SSRF防止クライアントでの取得
// 3. 画像Content-Typeの確認
// 4. 通常のAddItemと同じアップロード〜行作成
func (i *Importer) ImportItem(ctx context.Context, userID, name string, category model.Category, imageURL string) (*model.WardrobeItem, error) {
	if err := i.guard.ValidateURL(imageURL); err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	client := i.guard.NewSafeClient(i.fetchTimeout, i.maxFetchSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		// safeurlはブロック対象への接続をトランスポート層で拒否する
		if strings.Contains(err.Error(), "ip is not allowed") || strings.Contains(err.Error(), "not allowed") {
			return nil, model.NewSSRFBlockedError()
		}
		return nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, model.NewNotAnImageError(contentType)
	}

	body := io.LimitReader(resp.Body, i.maxFetchSize)
	return i.service.AddItem(ctx, userID, name, category, filenameFromURL(imageURL), body)
}

// filenameFromURL はURLパスの末尾をファイル名として採用する。
func filenameFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "imported"
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "imported"
	}
	return base
}
