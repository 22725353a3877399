package models

import (
	jwt "github.com/dgrijalva/jwt-go"
)

// MyClaims はJWTクレームの構造体定義です。
type MyClaims struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
	jwt.StandardClaims
}
