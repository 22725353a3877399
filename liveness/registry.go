package liveness

import (
	"context"

	"github.com/Krl22/Lingezshad-sub000/models"
)

// Registry はメンバーの生存記録を保持するエフェメラルなキー空間です。
// 各メンバーは自分のキーのみを書き、ルームのプレゼンス監視役が全体を読みます。
type Registry interface {
	// SetKey はメンバーの生存記録を書き込みます（再書き込みでTTL更新）
	SetKey(ctx context.Context, roomID, memberID string, rec models.LivenessRecord) error
	// RemoveKey は明示的な退室時の即時削除です
	RemoveKey(ctx context.Context, roomID, memberID string) error
	// Snapshot はルーム内の現在の生存メンバー一覧を返します
	Snapshot(ctx context.Context, roomID string) (map[string]models.LivenessRecord, error)
	// Subscribe は生存セットの変化ごとに最新スナップショットでfnを呼びます
	Subscribe(roomID string, fn func(map[string]models.LivenessRecord)) (unsubscribe func())
}
