package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Krl22/Lingezshad-sub000/game"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRoom(t *testing.T, st *store.MemoryStore, memberIDs ...string) *models.Room {
	t.Helper()
	members := make([]models.Member, len(memberIDs))
	for i, id := range memberIDs {
		members[i] = models.Member{MemberID: id, DisplayName: id, JoinedAt: time.Now()}
	}
	testRoom := &models.Room{
		RoomID:     "ROOM42",
		Creator:    members[0],
		MaxMembers: models.DefaultMaxMembers,
		Members:    members,
		Status:     models.RoomStatusInProgress,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, st.Set(context.Background(), testRoom))
	return testRoom
}

func memberProgress(t *testing.T, st *store.MemoryStore, memberID string) int {
	t.Helper()
	current, err := st.Get(context.Background(), "ROOM42")
	require.NoError(t, err)
	idx := current.FindMember(memberID)
	require.GreaterOrEqual(t, idx, 0)
	return current.Members[idx].Progress
}

// トランザクションの完了を遅らせるラッパー。
// 採点中にラウンドタイマーが発火する状況を再現するためのもの
type slowStore struct {
	store.RoomStore
	delay time.Duration
}

func (s *slowStore) Transaction(ctx context.Context, roomID string, fn func(*models.Room) (*models.Room, error)) error {
	time.Sleep(s.delay)
	return s.RoomStore.Transaction(ctx, roomID, fn)
}

func Test_correct_answer_awards_exactly_one_point(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a", "b")

	engine := game.NewEngine("ROOM42", "a", st, models.GameSettings{}, zap.NewNop(), nil)
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, false)

	result, err := engine.SubmitAnswer(context.Background(), "dog") // QuestionBank[0]
	require.NoError(t, err)

	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Awarded)
	assert.Equal(t, 1, result.QuestionIndex)
	assert.Equal(t, 1, memberProgress(t, st, "a"))
	assert.Equal(t, 0, memberProgress(t, st, "b"))
}

func Test_rapid_bonus_awards_two_points(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")

	settings := models.GameSettings{RapidBonusEnabled: true, RapidBonusSeconds: 5}
	engine := game.NewEngine("ROOM42", "a", st, settings, zap.NewNop(), nil)
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, false)

	result, err := engine.SubmitAnswer(context.Background(), "dog")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Awarded)
	assert.Equal(t, 2, memberProgress(t, st, "a"))
}

func Test_wrong_answer_advances_without_credit(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")

	engine := game.NewEngine("ROOM42", "a", st, models.GameSettings{}, zap.NewNop(), nil)
	engine.Start()
	defer engine.Stop()

	result, err := engine.SubmitAnswer(context.Background(), "cat")
	require.NoError(t, err)

	assert.False(t, result.Correct)
	assert.Equal(t, 0, result.Awarded)
	assert.Equal(t, 1, result.QuestionIndex)
	assert.Equal(t, 0, memberProgress(t, st, "a"))
}

func Test_special_answer_penalizes_others_floored_at_zero(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a", "b", "c")
	ctx := context.Background()

	// aは1点持ち、cは0点のままスペシャル問題の減点を受ける
	require.NoError(t, st.Transaction(ctx, "ROOM42", func(r *models.Room) (*models.Room, error) {
		r.Members[0].Progress = 1
		return r, nil
	}))

	settings := models.GameSettings{SpecialQuestionsEnabled: true}
	engine := game.NewEngine("ROOM42", "b", st, settings, zap.NewNop(), nil)
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, true)

	result, err := engine.SubmitAnswer(ctx, "dog")
	require.NoError(t, err)

	assert.True(t, result.Special)
	assert.Equal(t, 1, memberProgress(t, st, "b"))
	assert.Equal(t, 0, memberProgress(t, st, "a"))
	assert.Equal(t, 0, memberProgress(t, st, "c")) // 0未満には下がらない
}

func Test_concurrent_correct_submissions_are_both_counted(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a", "b")

	engineA := game.NewEngine("ROOM42", "a", st, models.GameSettings{}, zap.NewNop(), nil)
	engineB := game.NewEngine("ROOM42", "b", st, models.GameSettings{}, zap.NewNop(), nil)
	engineA.Start()
	engineB.Start()
	defer engineA.Stop()
	defer engineB.Stop()
	game.ForceSpecial(engineA, false)
	game.ForceSpecial(engineB, false)

	// 同一ラウンドでの同時正解。トランザクションが読み直すため更新は失われない
	var wg sync.WaitGroup
	for _, engine := range []*game.Engine{engineA, engineB} {
		wg.Add(1)
		go func(e *game.Engine) {
			defer wg.Done()
			_, err := e.SubmitAnswer(context.Background(), "dog")
			assert.NoError(t, err)
		}(engine)
	}
	wg.Wait()

	assert.Equal(t, 1, memberProgress(t, st, "a"))
	assert.Equal(t, 1, memberProgress(t, st, "b"))
}

func Test_failed_transaction_does_not_advance_question(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")
	ctx := context.Background()

	engine := game.NewEngine("ROOM42", "a", st, models.GameSettings{}, zap.NewNop(), nil)
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, false)

	require.NoError(t, st.Delete(ctx, "ROOM42"))

	_, err := engine.SubmitAnswer(ctx, "dog")
	require.Error(t, err)

	// 失敗時は進まない。同じ回答の再送で再試行できる
	assert.Equal(t, 0, engine.QuestionIndex())
}

func Test_round_timer_advances_without_crediting(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")

	timedOut := make(chan int, 1)
	settings := models.GameSettings{TimeLimitEnabled: true, TimeLimitSeconds: 1}
	engine := game.NewEngine("ROOM42", "a", st, settings, zap.NewNop(), func(next int) {
		timedOut <- next
	})
	engine.Start()
	defer engine.Stop()

	select {
	case next := <-timedOut:
		assert.Equal(t, 1, next)
	case <-time.After(3 * time.Second):
		t.Fatal("round timer did not fire")
	}

	assert.Equal(t, 1, engine.QuestionIndex())
	assert.Equal(t, 0, memberProgress(t, st, "a"))
}

func Test_timeout_during_score_transaction_does_not_double_advance(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")
	slow := &slowStore{RoomStore: st, delay: 1300 * time.Millisecond}

	timedOut := make(chan int, 1)
	settings := models.GameSettings{TimeLimitEnabled: true, TimeLimitSeconds: 1}
	engine := game.NewEngine("ROOM42", "a", slow, settings, zap.NewNop(), func(next int) {
		timedOut <- next
	})
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, false)

	// 採点トランザクションが制限時間をまたいで完了する。
	// ラウンドは採点開始時に閉じられているため問題は１つだけ進む
	result, err := engine.SubmitAnswer(context.Background(), "dog")
	require.NoError(t, err)

	assert.Equal(t, 1, result.QuestionIndex)
	assert.Equal(t, 1, engine.QuestionIndex())
	assert.Equal(t, 1, memberProgress(t, st, "a"))

	select {
	case next := <-timedOut:
		t.Fatalf("timeout fired for a graded round, next=%d", next)
	default:
	}
}

func Test_round_timer_is_rearmed_when_score_transaction_fails(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")
	ctx := context.Background()

	timedOut := make(chan int, 1)
	settings := models.GameSettings{TimeLimitEnabled: true, TimeLimitSeconds: 1}
	engine := game.NewEngine("ROOM42", "a", st, settings, zap.NewNop(), func(next int) {
		timedOut <- next
	})
	engine.Start()
	defer engine.Stop()
	game.ForceSpecial(engine, false)

	// ルームを消してトランザクションを失敗させる
	require.NoError(t, st.Delete(ctx, "ROOM42"))
	_, err := engine.SubmitAnswer(ctx, "dog")
	require.Error(t, err)

	// ラウンドは継続しているので残り時間の経過で問題が送られる
	select {
	case next := <-timedOut:
		assert.Equal(t, 1, next)
	case <-time.After(3 * time.Second):
		t.Fatal("round timer was not rearmed")
	}
}

func Test_Stop_cancels_pending_round_timer(t *testing.T) {
	st := store.NewMemoryStore()
	newTestRoom(t, st, "a")

	timedOut := make(chan int, 1)
	settings := models.GameSettings{TimeLimitEnabled: true, TimeLimitSeconds: 1}
	engine := game.NewEngine("ROOM42", "a", st, settings, zap.NewNop(), func(next int) {
		timedOut <- next
	})
	engine.Start()
	engine.Stop()

	select {
	case <-timedOut:
		t.Fatal("timer fired after Stop")
	case <-time.After(1500 * time.Millisecond):
	}
}

func Test_Winner_observes_target_progress(t *testing.T) {
	testRoom := &models.Room{
		Members: []models.Member{
			{MemberID: "a", Progress: game.TargetProgress - 1},
			{MemberID: "b", Progress: game.TargetProgress},
		},
	}

	winner := game.Winner(testRoom)
	require.NotNil(t, winner)
	assert.Equal(t, "b", winner.MemberID)

	assert.Nil(t, game.Winner(&models.Room{Members: []models.Member{{MemberID: "a"}}}))
	assert.Nil(t, game.Winner(nil))
}
