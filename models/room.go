package models

import (
	"time"
)

// ルームのステータス定数
const (
	RoomStatusWaiting    = "waiting"
	RoomStatusInProgress = "in_progress"
	RoomStatusEmpty      = "empty" // 外部から孤児判定されたルーム。スイーパーの削除対象
)

// ルームの定員（作成時に固定）
const DefaultMaxMembers = 8

// Member はルームに参加しているメンバー一人分の情報です。
type Member struct {
	MemberID    string    `json:"memberId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	Progress    int       `json:"progress"` // 正解数カウンター。0以上
}

// GameSettings はルーム作成者のみがwaiting中に変更できるゲーム設定です。
type GameSettings struct {
	TimeLimitEnabled        bool `json:"timeLimitEnabled"`
	TimeLimitSeconds        int  `json:"timeLimitSeconds"`
	SpecialQuestionsEnabled bool `json:"specialQuestionsEnabled"`
	RapidBonusEnabled       bool `json:"rapidBonusEnabled"`
	RapidBonusSeconds       int  `json:"rapidBonusSeconds"`
}

// Room は１つのマルチプレイセッションを表すドキュメントです。
type Room struct {
	RoomID     string       `json:"roomId"`
	Creator    Member       `json:"creator"` // 作成後は不変。プレゼンス監視の担当者
	MaxMembers int          `json:"maxMembers"`
	Members    []Member     `json:"members"`
	Status     string       `json:"status"` // "waiting" または "in_progress"
	Settings   GameSettings `json:"gameSettings"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// FindMember はメンバーIDからメンバーを探し、見つからない場合は-1を返します。
func (r *Room) FindMember(memberID string) int {
	for i, m := range r.Members {
		if m.MemberID == memberID {
			return i
		}
	}
	return -1
}

// HasDisplayName はニックネームが既に使われているかを返します。
func (r *Room) HasDisplayName(name string) bool {
	for _, m := range r.Members {
		if m.DisplayName == name {
			return true
		}
	}
	return false
}

// LivenessRecord はメンバーの接続中を示すエフェメラルなマーカーです。
// 切断時にはレジストリ側で自動削除されます。
type LivenessRecord struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}
