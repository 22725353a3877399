package handlers

import (
	"net/http"

	"github.com/Krl22/Lingezshad-sub000/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GuestTokenRequest はゲストトークン発行のリクエストです。
type GuestTokenRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	MemberID    string `json:"memberId"` // 省略可。指定すると既存IDでトークンを再発行
}

// GuestToken はアカウント無しで使えるゲストトークンを発行します。
func GuestToken(c *gin.Context, logger *zap.Logger) {
	var request GuestTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Guest token request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, memberID, err := middlewares.GenerateToken(request.DisplayName, request.MemberID)
	if err != nil {
		logger.Error("Token generation error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "memberId": memberID})
}
