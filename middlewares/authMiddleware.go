package middlewares

import (
	"net/http"
	"strings"

	"github.com/Krl22/Lingezshad-sub000/auth"
	"github.com/Krl22/Lingezshad-sub000/models"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware はAuthorizationヘッダーのトークンを検証し、
// メンバーIDとニックネームをコンテキストに載せます。
func AuthMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if strings.HasPrefix(tokenString, "Bearer ") {
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証トークンがありません"})
			return
		}

		claims := &models.MyClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return auth.JwtKey, nil
		})
		if err != nil || !token.Valid {
			logger.Error("Token validation error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証失敗"})
			return
		}

		c.Set("memberID", claims.MemberID)
		c.Set("displayName", claims.DisplayName)
		c.Next()
	}
}
