package actions

import (
	"sync"

	"github.com/Krl22/Lingezshad-sub000/game"
)

// Session は１接続分のゲーム状態（出題エンジン）を保持します。
// エンジンはゲーム開始で生成され、終了・切断で必ず停止されます
type Session struct {
	mu     sync.Mutex
	engine *game.Engine
}

func NewSession() *Session {
	return &Session{}
}

// Engine は現在のエンジンを返します。ゲーム中でなければnil
func (s *Session) Engine() *game.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// SetEngine は新しいエンジンを設定します。既存のエンジンは停止されます。
func (s *Session) SetEngine(engine *game.Engine) {
	s.mu.Lock()
	old := s.engine
	s.engine = engine
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// StopEngine はエンジンを停止して破棄します。
func (s *Session) StopEngine() {
	s.SetEngine(nil)
}
