package broadcast

import (
	"encoding/json"

	"github.com/Krl22/Lingezshad-sub000/game"
	"github.com/Krl22/Lingezshad-sub000/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SendRoomState はルームドキュメントの最新スナップショットをクライアントに送ります。
// 各クライアントは購読経由でこれを受け取り、自分の画面を再構築します。
// 勝者の判定は観測のみで、ドキュメントには書き戻しません
func SendRoomState(client *models.Client, room *models.Room, logger *zap.Logger) {
	membersInfo := make([]map[string]interface{}, len(room.Members))
	for i, m := range room.Members {
		membersInfo[i] = map[string]interface{}{
			"memberId":    m.MemberID,
			"displayName": m.DisplayName,
			"joinedAt":    m.JoinedAt,
			"progress":    m.Progress,
		}
	}

	state := map[string]interface{}{
		"type":         "roomState",
		"roomId":       room.RoomID,
		"status":       room.Status,
		"members":      membersInfo,
		"gameSettings": room.Settings,
		"creator":      room.Creator.MemberID,
	}
	if winner := game.Winner(room); winner != nil {
		state["winner"] = winner.MemberID
	}

	messageJSON, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to marshal room state", zap.Error(err))
		return
	}
	if err := client.Conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		logger.Error("Failed to send room state", zap.String("to", client.MemberID), zap.Error(err))
	}
}

// SendRoomDeleted はルームが消滅したことを通知します。
// 受け取ったクライアントはロビーに戻ります
func SendRoomDeleted(client *models.Client, roomID string, logger *zap.Logger) {
	message := map[string]interface{}{
		"type":   "roomDeleted",
		"roomId": roomID,
	}
	messageJSON, _ := json.Marshal(message)
	if err := client.Conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		logger.Error("Failed to send room deleted message", zap.Error(err))
	}
}

// SendSubmitResult は回答の採点結果を本人にだけ返します。
func SendSubmitResult(client *models.Client, result game.SubmitResult, logger *zap.Logger) {
	message := map[string]interface{}{
		"type":   "submitResult",
		"result": result,
	}
	messageJSON, _ := json.Marshal(message)
	if err := client.Conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		logger.Error("Failed to send submit result", zap.Error(err))
	}
}

// SendRoundTimeout は制限時間切れでの問題送りを通知します。
func SendRoundTimeout(client *models.Client, questionIndex int, logger *zap.Logger) {
	message := map[string]interface{}{
		"type":          "roundTimeout",
		"questionIndex": questionIndex,
	}
	messageJSON, _ := json.Marshal(message)
	if err := client.Conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		logger.Error("Failed to send round timeout", zap.Error(err))
	}
}

// SendError はアクションの失敗をクライアントに返します。
// UI側はこれを表示して再試行するかどうかをユーザーに委ねます
func SendError(client *models.Client, errMessage string, logger *zap.Logger) {
	message := map[string]interface{}{
		"type":  "error",
		"error": errMessage,
	}
	messageJSON, _ := json.Marshal(message)
	if err := client.Conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		logger.Error("Failed to send error message", zap.Error(err))
	}
}
