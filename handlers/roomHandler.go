package handlers

import (
	"errors"
	"net/http"

	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/room"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomCreateRequest はルーム作成リクエストです。
type RoomCreateRequest struct {
	GameSettings models.GameSettings `json:"gameSettings"`
}

// RoomActionRequest はルームIDだけを取るアクションのリクエストです。
type RoomActionRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// SettingsUpdateRequest はゲーム設定更新のリクエストです。
type SettingsUpdateRequest struct {
	RoomID       string              `json:"roomId" binding:"required"`
	GameSettings models.GameSettings `json:"gameSettings"`
}

// RoomCreate は新しいルームを作成してルームコードを返します。
func RoomCreate(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request RoomCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID := c.GetString("memberID")
	displayName := c.GetString("displayName")

	roomID, err := manager.CreateRoom(c.Request.Context(), memberID, displayName, request.GameSettings)
	if err != nil {
		logger.Error("Room create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ルーム作成に失敗しました"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": roomID})
}

// RoomJoin はルームに参加します。存在しないルームIDの場合は
// 参加者を作成者として新しいルームが生成されます。
func RoomJoin(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request RoomActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID := c.GetString("memberID")
	displayName := c.GetString("displayName")

	if err := manager.JoinRoom(c.Request.Context(), request.RoomID, memberID, displayName); err != nil {
		respondRoomError(c, err, logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": request.RoomID})
}

// RoomLeave はルームから退室します。
// 書き込みが失敗してもクライアントは安全にロビーへ戻れるよう、
// エラーの有無に関わらずレスポンスを返します
func RoomLeave(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request RoomActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID := c.GetString("memberID")
	if err := manager.LeaveRoom(c.Request.Context(), request.RoomID, memberID); err != nil {
		logger.Error("Leave room failed",
			zap.String("roomID", request.RoomID), zap.String("memberID", memberID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "退室処理に失敗しました", "left": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"left": true})
}

// SettingsUpdate はゲーム設定を更新します。作成者のみ、waiting中のみ
func SettingsUpdate(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request SettingsUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID := c.GetString("memberID")
	if err := manager.UpdateGameSettings(c.Request.Context(), request.RoomID, memberID, request.GameSettings); err != nil {
		respondRoomError(c, err, logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// GameStart はルームをin_progressに遷移させます。
func GameStart(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request RoomActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := manager.StartGame(c.Request.Context(), request.RoomID); err != nil {
		respondRoomError(c, err, logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"started": true})
}

// ReturnToRoom は全メンバーをロビーに戻し、progressをリセットします。
func ReturnToRoom(c *gin.Context, manager *room.Manager, logger *zap.Logger) {
	var request RoomActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := manager.ReturnToRoom(c.Request.Context(), request.RoomID); err != nil {
		respondRoomError(c, err, logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"returned": true})
}

// ルーム操作のエラーをHTTPステータスに変換します。
// 事前条件違反は4xx、ストア障害は5xx
func respondRoomError(c *gin.Context, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ルームが存在しません"})
	case errors.Is(err, room.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": "ルームが満員です"})
	case errors.Is(err, room.ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "そのニックネームは使用中です"})
	case errors.Is(err, room.ErrNotCreator):
		c.JSON(http.StatusForbidden, gin.H{"error": "作成者のみが実行できます"})
	case errors.Is(err, room.ErrNotWaiting):
		c.JSON(http.StatusConflict, gin.H{"error": "ゲーム進行中は実行できません"})
	default:
		logger.Error("Room action failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "処理に失敗しました"})
	}
}
