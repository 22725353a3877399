package presence

import "time"

// SetReconcileTick は周期照合の間隔をテストから短縮します。Startの前に呼ぶこと
func SetReconcileTick(s *Supervisor, d time.Duration) {
	s.mu.Lock()
	s.tick = d
	s.mu.Unlock()
}
