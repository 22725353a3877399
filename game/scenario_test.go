package game_test

import (
	"context"
	"testing"

	"github.com/Krl22/Lingezshad-sub000/game"
	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/room"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 参加から採点までの一連の流れ。
// Aが通常問題に正解して1点、Bがスペシャル問題に正解してAが減点される
func Test_two_member_game_flow_with_special_penalty(t *testing.T) {
	st := store.NewMemoryStore()
	registry := liveness.NewMemoryRegistry()
	manager := room.NewManager(st, registry, zap.NewNop())
	ctx := context.Background()

	settings := models.GameSettings{SpecialQuestionsEnabled: true}
	roomID, err := manager.CreateRoom(ctx, "a", "Ana", settings)
	require.NoError(t, err)

	require.NoError(t, manager.JoinRoom(ctx, roomID, "b", "Beto"))
	require.NoError(t, manager.StartGame(ctx, roomID))

	current, err := st.Get(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, current.Members, 2)

	engineA := game.NewEngine(roomID, "a", st, current.Settings, zap.NewNop(), nil)
	engineB := game.NewEngine(roomID, "b", st, current.Settings, zap.NewNop(), nil)
	engineA.Start()
	engineB.Start()
	defer engineA.Stop()
	defer engineB.Stop()

	// Aは通常問題に正解
	game.ForceSpecial(engineA, false)
	resultA, err := engineA.SubmitAnswer(ctx, "dog")
	require.NoError(t, err)
	assert.Equal(t, 1, resultA.Awarded)

	// Bはスペシャル問題に正解し、Aは1点からゼロに減点される
	game.ForceSpecial(engineB, true)
	resultB, err := engineB.SubmitAnswer(ctx, "dog")
	require.NoError(t, err)
	assert.True(t, resultB.Special)

	final, err := st.Get(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.Members[final.FindMember("b")].Progress)
	assert.Equal(t, 0, final.Members[final.FindMember("a")].Progress)

	// ロビーに戻すと全員のprogressが0に戻る
	require.NoError(t, manager.ReturnToRoom(ctx, roomID))
	reset, err := st.Get(ctx, roomID)
	require.NoError(t, err)
	for _, m := range reset.Members {
		assert.Equal(t, 0, m.Progress)
	}
}
