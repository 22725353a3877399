package liveness

import (
	"context"
	"sync"

	"github.com/Krl22/Lingezshad-sub000/models"
)

// MemoryRegistry はRegistryのインメモリ実装です。テスト用
type MemoryRegistry struct {
	mu     sync.Mutex
	keys   map[string]map[string]models.LivenessRecord // roomID -> memberID -> record
	nextID int
	subs   map[string]map[int]func(map[string]models.LivenessRecord)
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		keys: make(map[string]map[string]models.LivenessRecord),
		subs: make(map[string]map[int]func(map[string]models.LivenessRecord)),
	}
}

func (r *MemoryRegistry) SetKey(ctx context.Context, roomID, memberID string, rec models.LivenessRecord) error {
	r.mu.Lock()
	if r.keys[roomID] == nil {
		r.keys[roomID] = make(map[string]models.LivenessRecord)
	}
	r.keys[roomID][memberID] = rec
	r.mu.Unlock()
	r.notify(roomID)
	return nil
}

func (r *MemoryRegistry) RemoveKey(ctx context.Context, roomID, memberID string) error {
	r.mu.Lock()
	delete(r.keys[roomID], memberID)
	r.mu.Unlock()
	r.notify(roomID)
	return nil
}

func (r *MemoryRegistry) Snapshot(ctx context.Context, roomID string) (map[string]models.LivenessRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(roomID), nil
}

func (r *MemoryRegistry) snapshotLocked(roomID string) map[string]models.LivenessRecord {
	snapshot := make(map[string]models.LivenessRecord, len(r.keys[roomID]))
	for memberID, rec := range r.keys[roomID] {
		snapshot[memberID] = rec
	}
	return snapshot
}

func (r *MemoryRegistry) Subscribe(roomID string, fn func(map[string]models.LivenessRecord)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	if r.subs[roomID] == nil {
		r.subs[roomID] = make(map[int]func(map[string]models.LivenessRecord))
	}
	r.subs[roomID][id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[roomID], id)
	}
}

func (r *MemoryRegistry) notify(roomID string) {
	r.mu.Lock()
	snapshot := r.snapshotLocked(roomID)
	fns := make([]func(map[string]models.LivenessRecord), 0, len(r.subs[roomID]))
	for _, fn := range r.subs[roomID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
