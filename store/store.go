package store

import (
	"context"
	"errors"

	"github.com/Krl22/Lingezshad-sub000/models"
)

// ルームが存在しない場合のエラー
var ErrNotFound = errors.New("room not found")

// RoomStore はルームドキュメントの永続ストアです。
// Firestore相当のトランザクションと変更通知をサーバー内で提供します。
type RoomStore interface {
	// Get はルームを取得します。存在しない場合はErrNotFound
	Get(ctx context.Context, roomID string) (*models.Room, error)
	// Set はルームドキュメント全体を書き込みます（新規作成または上書き）
	Set(ctx context.Context, room *models.Room) error
	// Delete はルームを削除します。既に存在しない場合も成功扱い
	Delete(ctx context.Context, roomID string) error
	// Transaction は１ルームに対するread-modify-writeをアトミックに実行します。
	// fnには最新のスナップショットが渡されます（存在しない場合はnil）。
	// fnがnilを返した場合ルームは削除されます。
	Transaction(ctx context.Context, roomID string, fn func(room *models.Room) (*models.Room, error)) error
	// Subscribe はルームへの書き込みごとにfnを呼び出します。
	// 削除時はnilが渡されます。戻り値は購読解除関数
	Subscribe(roomID string, fn func(room *models.Room)) (unsubscribe func())
	// List は全ルームを返します（クリーンナップスイーパー用）
	List(ctx context.Context) ([]*models.Room, error)
}

// CloneRoom はルームのディープコピーを返します。
// 購読者とストア内部で同じスライスを共有しないために使います。
func CloneRoom(r *models.Room) *models.Room {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Members = make([]models.Member, len(r.Members))
	copy(clone.Members, r.Members)
	return &clone
}
