package middlewares

import (
	"time"

	"github.com/Krl22/Lingezshad-sub000/auth"
	"github.com/Krl22/Lingezshad-sub000/models"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// GenerateToken はゲスト用のトークンを発行します。
// アカウント管理は持たないため、メンバーIDはここで採番したUUIDです
func GenerateToken(displayName string, existingMemberID string) (string, string, error) {
	memberID := existingMemberID
	if memberID == "" {
		memberID = uuid.New().String()
	}

	expirationTime := time.Now().Add(72 * time.Hour)

	// JWTトークン生成時に内包するデータ
	claims := &models.MyClaims{
		MemberID:    memberID,
		DisplayName: displayName,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(auth.JwtKey)

	return tokenString, memberID, err
}
