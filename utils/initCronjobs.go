package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronSweeper は放置されたルームを定期的に削除するジョブを起動します。
// プレゼンス監視とは独立した粗い後始末で、作成者が戻って来ないルームの
// ストレージ増加を抑えるためのものです
func CronSweeper(st store.RoomStore, logger *zap.Logger, interval time.Duration, retention time.Duration) {
	c := cron.New()

	spec := fmt.Sprintf("@every %s", interval)
	c.AddFunc(spec, func() {
		logger.Info("ルームのクリーンナップ処理を開始")
		deleted, err := SweepRooms(context.Background(), st, retention, time.Now())
		if err != nil {
			logger.Error("ルームのクリーンナップで一部失敗しました",
				zap.Int("rooms_deleted", deleted), zap.Error(err))
			return
		}
		logger.Info("ルームのクリーンナップ完了", zap.Int("rooms_deleted", deleted))
	})

	c.Start()
}

// SweepRooms は１回分のスイープを実行し、削除したルーム数を返します。
// 削除対象: statusがemptyのルーム、および作成からretentionを超えたルーム
// （在室者の有無は問わない）。既に消えているルームの削除は成功扱い
func SweepRooms(ctx context.Context, st store.RoomStore, retention time.Duration, now time.Time) (int, error) {
	rooms, err := st.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var firstErr error
	for _, room := range rooms {
		expired := now.Sub(room.CreatedAt) > retention
		if room.Status != models.RoomStatusEmpty && !expired {
			continue
		}
		if err := st.Delete(ctx, room.RoomID); err != nil {
			// 1件の失敗で全体を止めない。残りを消してから最初のエラーを返す
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
