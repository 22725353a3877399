package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomDocument はPostgreSQLに保存するルームドキュメントの行です。
// 本体はjsonbで保持し、スイーパーが使うcreated_atのみカラムに持ちます。
type RoomDocument struct {
	RoomID    string `gorm:"primaryKey"`
	Data      []byte `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GormStore はRoomStoreのPostgreSQL実装です。
type GormStore struct {
	db       *gorm.DB
	logger   *zap.Logger
	notifier *notifier
}

func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger, notifier: newNotifier()}
}

func decodeRoom(doc *RoomDocument) (*models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(doc.Data, &room); err != nil {
		return nil, fmt.Errorf("room document decode failed: %w", err)
	}
	return &room, nil
}

func encodeRoom(room *models.Room) (*RoomDocument, error) {
	data, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("room document encode failed: %w", err)
	}
	return &RoomDocument{RoomID: room.RoomID, Data: data, CreatedAt: room.CreatedAt}, nil
}

func (s *GormStore) Get(ctx context.Context, roomID string) (*models.Room, error) {
	var doc RoomDocument
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(&doc)
}

func (s *GormStore) Set(ctx context.Context, room *models.Room) error {
	doc, err := encodeRoom(room)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(doc).Error
	if err != nil {
		return err
	}
	s.notifier.notify(room.RoomID, room)
	return nil
}

// Delete は存在しないルームの削除も成功として扱います。
// プレゼンス監視とスイーパーが同じルームを消し合うことがあるため
func (s *GormStore) Delete(ctx context.Context, roomID string) error {
	result := s.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&RoomDocument{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.notifier.notify(roomID, nil)
	}
	return nil
}

func (s *GormStore) Transaction(ctx context.Context, roomID string, fn func(room *models.Room) (*models.Room, error)) error {
	var updated *models.Room
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 同時書き込みによる更新ロストを防ぐため行ロックを取得
		var doc RoomDocument
		var current *models.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ?", roomID).First(&doc).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			current, err = decodeRoom(&doc)
			if err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			if current == nil {
				return nil // 元々存在しない。削除成功扱い
			}
			deleted = true
			return tx.Where("room_id = ?", roomID).Delete(&RoomDocument{}).Error
		}

		nextDoc, err := encodeRoom(next)
		if err != nil {
			return err
		}
		updated = next
		if current == nil {
			return tx.Create(nextDoc).Error
		}
		return tx.Model(&RoomDocument{}).Where("room_id = ?", roomID).
			Update("data", nextDoc.Data).Error
	})
	if err != nil {
		return err
	}

	// コミット後に購読者へ通知
	if deleted {
		s.notifier.notify(roomID, nil)
	} else if updated != nil {
		s.notifier.notify(roomID, updated)
	}
	return nil
}

func (s *GormStore) Subscribe(roomID string, fn func(room *models.Room)) func() {
	return s.notifier.subscribe(roomID, fn)
}

func (s *GormStore) List(ctx context.Context) ([]*models.Room, error) {
	var docs []RoomDocument
	if err := s.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return nil, err
	}
	rooms := make([]*models.Room, 0, len(docs))
	for i := range docs {
		room, err := decodeRoom(&docs[i])
		if err != nil {
			s.logger.Error("Skipping undecodable room document",
				zap.String("roomID", docs[i].RoomID), zap.Error(err))
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}
