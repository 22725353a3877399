package models

import (
	"github.com/gorilla/websocket"
)

// Websocketクライアントを定義
type Client struct {
	Conn        *websocket.Conn
	MemberID    string // JWTから抽出したメンバーID
	RoomID      string
	DisplayName string
	IsCreator   bool // trueの場合このクライアントがプレゼンス監視を担当
}
