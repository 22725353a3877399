package models

// Config 構造体はデータベース接続とルーム管理の設定情報を保持します。
type Config struct {
	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`

	// プレゼンス監視の猶予時間（秒）。再接続中のメンバーを誤って追放しないための値
	PresenceSettleSeconds int `json:"presence_settle_seconds"`
	// クリーンナップの実行間隔（分）と保持期間（時間）
	SweepIntervalMinutes   int `json:"sweep_interval_minutes"`
	RoomRetentionHours     int `json:"room_retention_hours"`
	LivenessTTLSeconds     int `json:"liveness_ttl_seconds"`
	SessionLifetimeMinutes int `json:"session_lifetime_minutes"`
}

// 設定ファイルに無い項目へのデフォルト値
func (c *Config) ApplyDefaults() {
	if c.PresenceSettleSeconds <= 0 {
		c.PresenceSettleSeconds = 5
	}
	if c.SweepIntervalMinutes <= 0 {
		c.SweepIntervalMinutes = 10
	}
	if c.RoomRetentionHours <= 0 {
		c.RoomRetentionHours = 24
	}
	if c.LivenessTTLSeconds <= 0 {
		c.LivenessTTLSeconds = 60
	}
	if c.SessionLifetimeMinutes <= 0 {
		c.SessionLifetimeMinutes = 24 * 60
	}
}
