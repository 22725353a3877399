package actions

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Krl22/Lingezshad-sub000/arena/broadcast"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/room"
	"github.com/Krl22/Lingezshad-sub000/store"

	"go.uber.org/zap"
)

// HandleClient はクライアントからのメッセージ読み取りループです。
// 接続ごとにゴルーチンで起動されます
func HandleClient(ctx context.Context, client *models.Client, sess *Session, manager *room.Manager, logger *zap.Logger) {
	defer client.Conn.Close()

	for {
		_, payload, err := client.Conn.ReadMessage()
		if err != nil {
			logger.Info("Client read loop finished",
				zap.String("memberID", client.MemberID), zap.Error(err))
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(payload, &msg); err != nil {
			broadcast.SendError(client, "Invalid message format", logger)
			continue
		}

		msgType, _ := msg["type"].(string)
		switch msgType {
		case "submitAnswer":
			handleSubmitAnswer(ctx, client, sess, msg, logger)
		case "startGame":
			if err := manager.StartGame(ctx, client.RoomID); err != nil {
				sendActionError(client, err, logger)
			}
		case "returnToRoom":
			if err := manager.ReturnToRoom(ctx, client.RoomID); err != nil {
				sendActionError(client, err, logger)
			}
		case "updateSettings":
			handleUpdateSettings(ctx, client, manager, msg, logger)
		case "leaveRoom":
			// 退室はストア書き込みの成否に関わらず接続を終了する。
			// クライアントを壊れた画面に取り残さないため
			if err := manager.LeaveRoom(ctx, client.RoomID, client.MemberID); err != nil {
				logger.Error("Leave room failed",
					zap.String("roomID", client.RoomID), zap.String("memberID", client.MemberID), zap.Error(err))
			}
			return
		default:
			broadcast.SendError(client, "Unknown message type", logger)
		}
	}
}

func handleSubmitAnswer(ctx context.Context, client *models.Client, sess *Session, msg map[string]interface{}, logger *zap.Logger) {
	engine := sess.Engine()
	if engine == nil {
		broadcast.SendError(client, "Game is not in progress", logger)
		return
	}

	answer, ok := msg["answer"].(string)
	if !ok {
		broadcast.SendError(client, "Invalid answer", logger)
		return
	}

	result, err := engine.SubmitAnswer(ctx, answer)
	if err != nil {
		// 失敗時は問題が進まないので、同じ回答の再送で再試行できる
		sendActionError(client, err, logger)
		return
	}
	broadcast.SendSubmitResult(client, result, logger)
}

func handleUpdateSettings(ctx context.Context, client *models.Client, manager *room.Manager, msg map[string]interface{}, logger *zap.Logger) {
	raw, err := json.Marshal(msg["gameSettings"])
	if err != nil {
		broadcast.SendError(client, "Invalid game settings", logger)
		return
	}
	var settings models.GameSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		broadcast.SendError(client, "Invalid game settings", logger)
		return
	}

	if err := manager.UpdateGameSettings(ctx, client.RoomID, client.MemberID, settings); err != nil {
		sendActionError(client, err, logger)
	}
}

// アクションの失敗をユーザー向けメッセージに変換して返します。
func sendActionError(client *models.Client, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		broadcast.SendError(client, "Room no longer exists", logger)
	case errors.Is(err, room.ErrRoomFull):
		broadcast.SendError(client, "Room is full", logger)
	case errors.Is(err, room.ErrNameTaken):
		broadcast.SendError(client, "Nickname is already taken", logger)
	case errors.Is(err, room.ErrNotCreator):
		broadcast.SendError(client, "Only the room creator may do this", logger)
	case errors.Is(err, room.ErrNotWaiting):
		broadcast.SendError(client, "Room is not in waiting state", logger)
	default:
		logger.Error("Action failed", zap.String("memberID", client.MemberID), zap.Error(err))
		broadcast.SendError(client, "Action failed, please try again", logger)
	}
}
