// Package session はサインイン状態のライフサイクルを管理する。
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/closetly/internal/model"
)

// IdentityResolver はセッションIDからユーザーを解決する。
type IdentityResolver interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// ProfileFetcher はユーザーのプロフィールを取得する。
type ProfileFetcher interface {
	Get(ctx context.Context, userID string) (*model.UserProfile, error)
}

// Controller はひとつの接続のサインイン状態を保持する。
// Start で識別情報とプロフィールを解決してキャッシュし、
// Stop で破棄する。依存するコントローラは OnActivate / OnDeactivate の
// コールバックで購読の開始・解放を行う。
type Controller struct {
	resolver IdentityResolver
	profiles ProfileFetcher
	logger   *slog.Logger

	mu         sync.Mutex
	active     bool
	identity   *model.Identity
	profile    *model.UserProfile
	onActive   func(identity model.Identity)
	onInactive func()
}

// NewController はControllerを生成する。
func NewController(resolver IdentityResolver, profiles ProfileFetcher, logger *slog.Logger) *Controller {
	return &Controller{
		resolver: resolver,
		profiles: profiles,
		logger:   logger,
	}
}

// OnActivate はサインイン確定時に呼ぶコールバックを登録する。Startより前に呼ぶこと。
func (c *Controller) OnActivate(fn func(identity model.Identity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onActive = fn
}

// OnDeactivate はサインアウト・解決失敗時に呼ぶコールバックを登録する。
func (c *Controller) OnDeactivate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInactive = fn
}

// Start はセッションIDを検証してサインイン状態を開始する。
// 解決に失敗した場合は非アクティブのまま UNAUTHORIZED を返す。
// ひとつのControllerで有効化できるのは1回だけ。
func (c *Controller) Start(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return model.NewInvalidRequestError("セッションは既に開始されています")
	}
	c.mu.Unlock()

	user, err := c.resolver.GetCurrentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if user == nil {
		return model.NewUnauthorizedError()
	}
	identity := user.Identity()

	// プロフィールは1回だけ取得する。失敗してもリトライせず nil のまま進む。
	var profile *model.UserProfile
	if c.profiles != nil {
		profile, err = c.profiles.Get(ctx, identity.ID)
		if err != nil {
			c.logger.Warn("failed to fetch profile on session start",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
			profile = nil
		}
	}

	c.mu.Lock()
	c.active = true
	c.identity = &identity
	c.profile = profile
	onActive := c.onActive
	c.mu.Unlock()

	if onActive != nil {
		onActive(identity)
	}
	return nil
}

// Stop はサインイン状態を終了してキャッシュを破棄する。
// 非アクティブ状態で呼んでも何もしない。
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.identity = nil
	c.profile = nil
	onInactive := c.onInactive
	c.mu.Unlock()

	if onInactive != nil {
		onInactive()
	}
}

// Identity はアクティブな場合に識別情報を返す。非アクティブならnil。
func (c *Controller) Identity() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	identity := *c.identity
	return &identity
}

// Profile はアクティブな場合にキャッシュ済みプロフィールを返す。
// 取得に失敗していた場合はアクティブでもnil。
func (c *Controller) Profile() *model.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.profile == nil {
		return nil
	}
	profile := *c.profile
	return &profile
}
