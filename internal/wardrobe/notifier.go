package wardrobe

import (
	"sync"

	"github.com/hitoshi/closetly/internal/model"
)

// Watcher はひとりのユーザーのワードローブスナップショット購読を表す。
// 利用後は必ずCloseを呼ぶこと。
type Watcher struct {
	notifier *Notifier
	userID   string
	ch       chan model.WardrobeByCategory
	once     sync.Once
}

// Snapshots はカテゴリ別スナップショットの受信チャネルを返す。
// Closeされるとチャネルはクローズされる。
func (w *Watcher) Snapshots() <-chan model.WardrobeByCategory {
	return w.ch
}

// Close は購読を解除する。複数回呼んでも安全。
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.notifier.unsubscribe(w)
	})
}

// Notifier はユーザーごとのワードローブ購読を管理する。
// ミューテーションのたびに完全なスナップショットを全Watcherへ配信する。
type Notifier struct {
	mu       sync.Mutex
	watchers map[string]map[*Watcher]struct{}
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{
		watchers: make(map[string]map[*Watcher]struct{}),
	}
}

// Subscribe は指定ユーザーのスナップショット購読を開始する。
func (n *Notifier) Subscribe(userID string) *Watcher {
	w := &Watcher{
		notifier: n,
		userID:   userID,
		// バッファ1で最新スナップショットだけを保持する
		ch: make(chan model.WardrobeByCategory, 1),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.watchers[userID] == nil {
		n.watchers[userID] = make(map[*Watcher]struct{})
	}
	n.watchers[userID][w] = struct{}{}
	return w
}

// Publish は指定ユーザーの全Watcherへスナップショットを配信する。
// 受信が追いついていないWatcherには古いスナップショットを捨てて
// 最新で置き換える。ミューテーション側をブロックすることはない。
func (n *Notifier) Publish(userID string, snapshot model.WardrobeByCategory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for w := range n.watchers[userID] {
		select {
		case w.ch <- snapshot:
		default:
			// 未受信の古いスナップショットを破棄して最新を入れる
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- snapshot:
			default:
			}
		}
	}
}

// WatcherCount は指定ユーザーのアクティブな購読数を返す。
func (n *Notifier) WatcherCount(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watchers[userID])
}

func (n *Notifier) unsubscribe(w *Watcher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if set, ok := n.watchers[w.userID]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(n.watchers, w.userID)
		}
	}
	close(w.ch)
}
