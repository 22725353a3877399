package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoom(roomID string) *models.Room {
	member := models.Member{MemberID: "a", DisplayName: "Ana", JoinedAt: time.Now()}
	return &models.Room{
		RoomID:     roomID,
		Creator:    member,
		MaxMembers: models.DefaultMaxMembers,
		Members:    []models.Member{member},
		Status:     models.RoomStatusWaiting,
		CreatedAt:  time.Now(),
	}
}

func Test_Get_returns_isolated_copy(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, sampleRoom("ROOM42")))

	first, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	first.Members[0].Progress = 99

	second, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Members[0].Progress)
}

func Test_Transaction_reads_latest_state_before_writing(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, sampleRoom("ROOM42")))

	for i := 0; i < 2; i++ {
		require.NoError(t, st.Transaction(ctx, "ROOM42", func(r *models.Room) (*models.Room, error) {
			r.Members[0].Progress++
			return r, nil
		}))
	}

	current, err := st.Get(ctx, "ROOM42")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Members[0].Progress)
}

func Test_Transaction_returning_nil_deletes_the_room(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, sampleRoom("ROOM42")))

	require.NoError(t, st.Transaction(ctx, "ROOM42", func(r *models.Room) (*models.Room, error) {
		return nil, nil
	}))

	_, err := st.Get(ctx, "ROOM42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func Test_Delete_of_missing_room_is_a_success(t *testing.T) {
	st := store.NewMemoryStore()

	assert.NoError(t, st.Delete(context.Background(), "MISSING"))
}

func Test_Subscribe_receives_writes_and_deletion(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	var got []*models.Room
	unsubscribe := st.Subscribe("ROOM42", func(r *models.Room) {
		got = append(got, r)
	})
	defer unsubscribe()

	require.NoError(t, st.Set(ctx, sampleRoom("ROOM42")))
	require.NoError(t, st.Delete(ctx, "ROOM42"))

	require.Len(t, got, 2)
	assert.NotNil(t, got[0])
	assert.Nil(t, got[1]) // 削除はnilで通知される
}

func Test_unsubscribed_callback_is_not_invoked(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	calls := 0
	unsubscribe := st.Subscribe("ROOM42", func(*models.Room) { calls++ })
	unsubscribe()

	require.NoError(t, st.Set(ctx, sampleRoom("ROOM42")))
	assert.Equal(t, 0, calls)
}
