package auth

import (
	"os"

	"github.com/Krl22/Lingezshad-sub000/models"

	jwt "github.com/dgrijalva/jwt-go"
)

// JWTの署名鍵。環境変数から取得
var JwtKey = loadJwtKey()

func loadJwtKey() []byte {
	if key := os.Getenv("JWT_SECRET"); key != "" {
		return []byte(key)
	}
	return []byte("lingezshad-dev-secret") // ローカル開発用
}

func IsValidToken(tokenString string) (bool, error) {
	claims := &models.MyClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return JwtKey, nil
	})

	if err != nil {
		return false, err
	}

	return token.Valid, nil
}
