package store

import (
	"context"
	"sync"

	"github.com/Krl22/Lingezshad-sub000/models"
)

// MemoryStore はRoomStoreのインメモリ実装です。
// テストとDBなしのローカル起動で使用します。
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	notifier *notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*models.Room),
		notifier: newNotifier(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, roomID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return CloneRoom(room), nil
}

func (s *MemoryStore) Set(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	s.rooms[room.RoomID] = CloneRoom(room)
	s.mu.Unlock()
	s.notifier.notify(room.RoomID, room)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	_, existed := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()
	if existed {
		s.notifier.notify(roomID, nil)
	}
	return nil
}

func (s *MemoryStore) Transaction(ctx context.Context, roomID string, fn func(room *models.Room) (*models.Room, error)) error {
	s.mu.Lock()
	current := CloneRoom(s.rooms[roomID])
	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var deleted bool
	if next == nil {
		if current != nil {
			delete(s.rooms, roomID)
			deleted = true
		}
	} else {
		s.rooms[roomID] = CloneRoom(next)
	}
	s.mu.Unlock()

	if deleted {
		s.notifier.notify(roomID, nil)
	} else if next != nil {
		s.notifier.notify(roomID, next)
	}
	return nil
}

func (s *MemoryStore) Subscribe(roomID string, fn func(room *models.Room)) func() {
	return s.notifier.subscribe(roomID, fn)
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]*models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, CloneRoom(room))
	}
	return rooms, nil
}
