package room

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"go.uber.org/zap"
)

// 参加前に同期的に検証されるエラー。これらの場合は一切書き込みを行いません
var (
	ErrRoomFull   = errors.New("room is full")
	ErrNameTaken  = errors.New("nickname is already taken")
	ErrNotCreator = errors.New("only the room creator may do this")
	ErrNotWaiting = errors.New("room is not in waiting state")
)

// ルームコードの文字種。紛らわしい文字（I, O, 0, 1）は除外
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// Manager はルームの作成・参加・退室とライフサイクルを管理します。
type Manager struct {
	store    store.RoomStore
	registry liveness.Registry
	logger   *zap.Logger
	randGen  *rand.Rand
}

func NewManager(st store.RoomStore, registry liveness.Registry, logger *zap.Logger) *Manager {
	return &Manager{
		store:    st,
		registry: registry,
		logger:   logger,
		randGen:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// 共有可能な短いルームコードを生成します。
// コード空間は32^6で、衝突は実用上無視できる頻度とみなします
func (m *Manager) generateRoomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[m.randGen.Intn(len(codeAlphabet))]
	}
	return string(code)
}

// CreateRoom は新しいルームを作成し、作成者を最初のメンバーとして登録します。
func (m *Manager) CreateRoom(ctx context.Context, ownerID, ownerName string, settings models.GameSettings) (string, error) {
	roomID := m.generateRoomCode()
	now := time.Now()
	owner := models.Member{
		MemberID:    ownerID,
		DisplayName: ownerName,
		JoinedAt:    now,
		Progress:    0,
	}

	// メンバー追加より先に生存記録を書く。
	// メンバーリストに載っているのに生存記録が無い瞬間を作らないため
	if err := m.registry.SetKey(ctx, roomID, ownerID, models.LivenessRecord{Online: true, LastSeen: now}); err != nil {
		return "", err
	}

	newRoom := &models.Room{
		RoomID:     roomID,
		Creator:    owner,
		MaxMembers: models.DefaultMaxMembers,
		Members:    []models.Member{owner},
		Status:     models.RoomStatusWaiting,
		Settings:   settings,
		CreatedAt:  now,
	}
	if err := m.store.Set(ctx, newRoom); err != nil {
		return "", err
	}

	m.logger.Info("Room created",
		zap.String("roomID", roomID), zap.String("ownerID", ownerID))
	return roomID, nil
}

// JoinRoom はメンバーをルームに参加させます。
// ルームが存在しない場合は参加者を作成者としてルームを生成します
// （共有リンクから直接来たクライアントのためのフォールバック経路）。
// 既に参加済みの場合は生存記録の更新のみ行います（ページリロード時の再参加）。
func (m *Manager) JoinRoom(ctx context.Context, roomID, memberID, memberName string) error {
	now := time.Now()

	// 事前条件の検証。満室やニックネーム重複の場合は何も書き込まない
	current, err := m.store.Get(ctx, roomID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if current != nil && current.FindMember(memberID) < 0 {
		if len(current.Members) >= current.MaxMembers {
			return ErrRoomFull
		}
		if current.HasDisplayName(memberName) {
			return ErrNameTaken
		}
	}

	if err := m.registry.SetKey(ctx, roomID, memberID, models.LivenessRecord{Online: true, LastSeen: now}); err != nil {
		return err
	}

	return m.store.Transaction(ctx, roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			// フォールバック経路。例外的なので明示的にログを残す
			m.logger.Warn("Room not found on join, synthesizing",
				zap.String("roomID", roomID), zap.String("memberID", memberID))
			member := models.Member{MemberID: memberID, DisplayName: memberName, JoinedAt: now}
			return &models.Room{
				RoomID:     roomID,
				Creator:    member,
				MaxMembers: models.DefaultMaxMembers,
				Members:    []models.Member{member},
				Status:     models.RoomStatusWaiting,
				CreatedAt:  now,
			}, nil
		}
		if room.FindMember(memberID) >= 0 {
			return room, nil // 再参加。生存記録は更新済み
		}
		// トランザクション内で事前条件を再検証
		if len(room.Members) >= room.MaxMembers {
			return nil, ErrRoomFull
		}
		if room.HasDisplayName(memberName) {
			return nil, ErrNameTaken
		}
		room.Members = append(room.Members, models.Member{
			MemberID:    memberID,
			DisplayName: memberName,
			JoinedAt:    now,
			Progress:    0,
		})
		return room, nil
	})
}

// LeaveRoom は生存記録を消してからメンバーを削除します。
// 最後のメンバーが抜けた場合はルームごと削除します。
func (m *Manager) LeaveRoom(ctx context.Context, roomID, memberID string) error {
	if err := m.registry.RemoveKey(ctx, roomID, memberID); err != nil {
		m.logger.Error("Failed to remove liveness record on leave",
			zap.String("roomID", roomID), zap.String("memberID", memberID), zap.Error(err))
		// 退室自体は続行する。生存記録はTTLでいずれ消える
	}

	return m.store.Transaction(ctx, roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, nil // 既に消えている。退室成功扱い
		}
		idx := room.FindMember(memberID)
		if idx < 0 {
			return room, nil
		}
		room.Members = append(room.Members[:idx], room.Members[idx+1:]...)
		if len(room.Members) == 0 {
			m.logger.Info("Last member left, deleting room", zap.String("roomID", roomID))
			return nil, nil
		}
		return room, nil
	})
}

// UpdateGameSettings はゲーム設定を更新します。作成者のみ、waiting中のみ
func (m *Manager) UpdateGameSettings(ctx context.Context, roomID, memberID string, settings models.GameSettings) error {
	return m.store.Transaction(ctx, roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, store.ErrNotFound
		}
		if room.Creator.MemberID != memberID {
			return nil, ErrNotCreator
		}
		if room.Status != models.RoomStatusWaiting {
			return nil, ErrNotWaiting
		}
		room.Settings = settings
		return room, nil
	})
}

// StartGame はルームをin_progressに遷移させます。
func (m *Manager) StartGame(ctx context.Context, roomID string) error {
	return m.store.Transaction(ctx, roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, store.ErrNotFound
		}
		if room.Status != models.RoomStatusWaiting {
			return nil, ErrNotWaiting
		}
		room.Status = models.RoomStatusInProgress
		return room, nil
	})
}

// ReturnToRoom は全メンバーをロビーに戻します。
// statusをwaitingに戻し、全メンバーのprogressを0にリセットします。
func (m *Manager) ReturnToRoom(ctx context.Context, roomID string) error {
	return m.store.Transaction(ctx, roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, store.ErrNotFound
		}
		room.Status = models.RoomStatusWaiting
		for i := range room.Members {
			room.Members[i].Progress = 0
		}
		return room, nil
	})
}
