package connection

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Krl22/Lingezshad-sub000/auth"
	"github.com/Krl22/Lingezshad-sub000/models"

	jwt "github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// ClientContext はクライアントのセッション情報を保持するための構造体です。
type ClientContext struct {
	MemberID    string
	DisplayName string
	RoomID      string
	Claims      *models.MyClaims
}

// TokenValidation はAuthorizationヘッダーのJWTを検証してクレームを返します。
func TokenValidation(r *http.Request, logger *zap.Logger) (*models.MyClaims, error) {
	tokenString := r.Header.Get("Authorization")
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}
	// ブラウザのWebSocket APIはヘッダーを設定できないためクエリも許可
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}

	claims := &models.MyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return auth.JwtKey, nil
	})

	if err != nil || !token.Valid {
		logger.Error("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	return claims, nil
}

// FetchClientContext はトークンと接続URLからクライアントの文脈を組み立てます。
func FetchClientContext(r *http.Request, logger *zap.Logger) (*ClientContext, error) {
	claims, err := TokenValidation(r, logger)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}

	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}

	return &ClientContext{
		MemberID:    claims.MemberID,
		DisplayName: claims.DisplayName,
		RoomID:      roomID,
		Claims:      claims,
	}, nil
}
