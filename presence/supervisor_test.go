package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/presence"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const settle = 50 * time.Millisecond

func setupRoom(t *testing.T, memberIDs ...string) (*store.MemoryStore, *liveness.MemoryRegistry, *presence.Supervisor) {
	t.Helper()
	st := store.NewMemoryStore()
	registry := liveness.NewMemoryRegistry()

	members := make([]models.Member, len(memberIDs))
	for i, id := range memberIDs {
		members[i] = models.Member{MemberID: id, DisplayName: id, JoinedAt: time.Now()}
	}
	require.NoError(t, st.Set(context.Background(), &models.Room{
		RoomID:     "ROOM42",
		Creator:    members[0],
		MaxMembers: models.DefaultMaxMembers,
		Members:    members,
		Status:     models.RoomStatusWaiting,
		CreatedAt:  time.Now(),
	}))

	supervisor := presence.NewSupervisor("ROOM42", st, registry, settle, zap.NewNop())
	return st, registry, supervisor
}

func alive(ctx context.Context, t *testing.T, registry *liveness.MemoryRegistry, memberID string) {
	t.Helper()
	require.NoError(t, registry.SetKey(ctx, "ROOM42", memberID,
		models.LivenessRecord{Online: true, LastSeen: time.Now()}))
}

func Test_member_without_liveness_is_evicted_after_settling_delay(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a", "b")
	alive(ctx, t, registry, "a")

	supervisor.Start()
	defer supervisor.Stop()

	// bの生存記録が消えたまま戻らない
	require.NoError(t, registry.RemoveKey(ctx, "ROOM42", "b"))

	// 猶予時間の経過前はまだ在室している
	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, current.FindMember("b"), 0)

	time.Sleep(5 * settle)

	current, err = st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.Less(t, current.FindMember("b"), 0)
	assert.GreaterOrEqual(t, current.FindMember("a"), 0)
}

func Test_member_reappearing_within_settling_delay_is_not_evicted(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a", "b")
	alive(ctx, t, registry, "a")
	alive(ctx, t, registry, "b")

	supervisor.Start()
	defer supervisor.Stop()

	// 瞬断からの再接続。猶予時間内に生存記録が復活する
	require.NoError(t, registry.RemoveKey(ctx, "ROOM42", "b"))
	time.Sleep(settle / 5)
	alive(ctx, t, registry, "b")

	time.Sleep(5 * settle)

	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, current.FindMember("b"), 0)
}

func Test_room_is_deleted_when_eviction_empties_members(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a")

	supervisor.Start()
	defer supervisor.Stop()

	alive(ctx, t, registry, "a")
	require.NoError(t, registry.RemoveKey(ctx, "ROOM42", "a"))

	time.Sleep(5 * settle)

	_, err := st.Get(ctx, "ROOM42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func Test_member_expiring_without_notification_is_evicted_by_periodic_reconcile(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a", "b")
	alive(ctx, t, registry, "a")

	// bの生存記録はTTL切れで静かに消えた想定。pub/subイベントは一切発生しない
	presence.SetReconcileTick(supervisor, settle)
	supervisor.Start()
	defer supervisor.Stop()

	time.Sleep(10 * settle)

	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.Less(t, current.FindMember("b"), 0)
	assert.GreaterOrEqual(t, current.FindMember("a"), 0)
}

func Test_reconcile_without_stale_members_writes_nothing(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a")
	alive(ctx, t, registry, "a")

	writes := 0
	unsubscribe := st.Subscribe("ROOM42", func(*models.Room) { writes++ })
	defer unsubscribe()

	require.NoError(t, supervisor.Reconcile(ctx))
	assert.Equal(t, 0, writes)
}

func Test_eviction_happens_exactly_once(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a", "b")
	alive(ctx, t, registry, "a")

	writes := 0
	unsubscribe := st.Subscribe("ROOM42", func(*models.Room) { writes++ })
	defer unsubscribe()

	require.NoError(t, supervisor.Reconcile(ctx))
	require.NoError(t, supervisor.Reconcile(ctx))

	assert.Equal(t, 1, writes)
	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.Less(t, current.FindMember("b"), 0)
}

func Test_stopped_supervisor_does_not_reconcile(t *testing.T) {
	ctx := context.Background()
	st, registry, supervisor := setupRoom(t, "a", "b")
	alive(ctx, t, registry, "a")

	supervisor.Start()
	supervisor.Stop()

	require.NoError(t, registry.RemoveKey(ctx, "ROOM42", "b"))
	time.Sleep(5 * settle)

	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, current.FindMember("b"), 0)
}
