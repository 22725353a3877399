package store

import (
	"sync"

	"github.com/Krl22/Lingezshad-sub000/models"
)

// notifier はルームごとの購読者を管理し、書き込み後に通知を配ります。
// GormStoreとMemoryStoreで共用
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(*models.Room)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]func(*models.Room))}
}

func (n *notifier) subscribe(roomID string, fn func(*models.Room)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	if n.subs[roomID] == nil {
		n.subs[roomID] = make(map[int]func(*models.Room))
	}
	n.subs[roomID][id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[roomID], id)
		if len(n.subs[roomID]) == 0 {
			delete(n.subs, roomID)
		}
	}
}

// notify は各購読者にスナップショットのコピーを渡します。削除時はnil。
// ストアのロックを持たない状態で呼ぶこと
func (n *notifier) notify(roomID string, room *models.Room) {
	n.mu.Lock()
	fns := make([]func(*models.Room), 0, len(n.subs[roomID]))
	for _, fn := range n.subs[roomID] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(CloneRoom(room))
	}
}
