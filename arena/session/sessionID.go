package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Info はRedisに保存するセッション情報です。再接続時の復元に使います。
type Info struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
	RoomID      string `json:"roomId"`
}

// Validate はセッションIDをRedisと照合し、有効ならセッション情報を返します。
func Validate(ctx context.Context, rdb *redis.Client, sessionID string, logger *zap.Logger) *Info {
	if sessionID == "" {
		return nil
	}

	sessionInfoJSON, err := rdb.Get(ctx, "session:"+sessionID).Result()
	if err != nil {
		logger.Error("Failed to retrieve session info", zap.Error(err))
		return nil
	}

	var info Info
	if err := json.Unmarshal([]byte(sessionInfoJSON), &info); err != nil {
		logger.Error("Failed to decode session info", zap.Error(err))
		return nil
	}
	return &info
}

// GenerateAndStore は新しいセッションIDを発行してRedisに保存し、
// クライアントに送り返します。
func GenerateAndStore(ctx context.Context, client *models.Client, rdb *redis.Client, lifetime time.Duration, logger *zap.Logger) error {
	sessionID := uuid.New().String()

	info := Info{
		MemberID:    client.MemberID,
		DisplayName: client.DisplayName,
		RoomID:      client.RoomID,
	}
	sessionInfoJSON, err := json.Marshal(info)
	if err != nil {
		logger.Error("Error encoding session info", zap.Error(err))
		return err
	}

	if err := rdb.Set(ctx, "session:"+sessionID, sessionInfoJSON, lifetime).Err(); err != nil {
		logger.Error("Error storing session info in Redis", zap.Error(err))
		return err
	}

	return sendSessionIDToClient(client, sessionID, logger)
}

// Delete は旧セッションを破棄します。
func Delete(ctx context.Context, rdb *redis.Client, sessionID string) error {
	return rdb.Del(ctx, "session:"+sessionID).Err()
}

func sendSessionIDToClient(client *models.Client, sessionID string, logger *zap.Logger) error {
	response := map[string]interface{}{
		"type":      "session",
		"sessionID": sessionID,
		"memberID":  client.MemberID,
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		logger.Error("Error marshalling session ID response", zap.Error(err))
		return err
	}

	if client.Conn != nil {
		if err := client.Conn.WriteMessage(websocket.TextMessage, responseJSON); err != nil {
			logger.Error("Error sending session ID to client", zap.Error(err))
			return err
		}
	} else {
		logger.Warn("WebSocket connection is not established, cannot send session ID")
	}

	return nil
}
