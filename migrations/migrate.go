package migrations

import (
	"github.com/Krl22/Lingezshad-sub000/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate はルームドキュメントのテーブルを作成します。
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&store.RoomDocument{}); err != nil {
		logger.Error("マイグレーションに失敗しました", zap.Error(err))
		return err
	}
	logger.Info("マイグレーション完了")
	return nil
}
