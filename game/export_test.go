package game

// ForceSpecial はテストからスペシャルフラグの抽選結果を固定します。
func ForceSpecial(e *Engine, special bool) {
	e.mu.Lock()
	e.special = special
	e.mu.Unlock()
}
