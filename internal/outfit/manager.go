package outfit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/closetly/internal/repository"
)

// Manager はユーザーごとのControllerを管理する。
// 初回アクセス時に保存済み一覧を読み込んでControllerを生成し、
// サインアウトまで同じインスタンスを使い回す。
type Manager struct {
	blobs  repository.BlobRepository
	logger *slog.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewManager はManagerを生成する。
func NewManager(blobs repository.BlobRepository, logger *slog.Logger) *Manager {
	return &Manager{
		blobs:       blobs,
		logger:      logger,
		controllers: make(map[string]*Controller),
	}
}

// Get は指定ユーザーのControllerを返す。無ければ生成する。
func (m *Manager) Get(ctx context.Context, userID string) (*Controller, error) {
	m.mu.Lock()
	if c, ok := m.controllers[userID]; ok {
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	// ロック外でブロブを読み込む。競合した場合は先に登録された方を採用する。
	c, err := newController(ctx, userID, m.blobs, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.controllers[userID]; ok {
		return existing, nil
	}
	m.controllers[userID] = c
	return c, nil
}

// Release は指定ユーザーのControllerを破棄する。
// サインアウト時に呼ばれ、編集中のアイテム列は失われる。
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.controllers, userID)
}
