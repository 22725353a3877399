package arena

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Krl22/Lingezshad-sub000/arena/actions"
	"github.com/Krl22/Lingezshad-sub000/arena/broadcast"
	"github.com/Krl22/Lingezshad-sub000/arena/connection"
	"github.com/Krl22/Lingezshad-sub000/arena/session"
	"github.com/Krl22/Lingezshad-sub000/game"
	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/presence"
	"github.com/Krl22/Lingezshad-sub000/room"
	"github.com/Krl22/Lingezshad-sub000/store"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingPeriod   = 10 * time.Second
	readDeadline = 60 * time.Second
)

// Deps はWebSocket接続処理が使う依存の束です。
type Deps struct {
	Store    store.RoomStore
	Registry liveness.Registry
	Manager  *room.Manager
	Redis    *redis.Client
	Config   models.Config
	Logger   *zap.Logger
	Upgrader websocket.Upgrader
}

// HandleConnections はWebSocket接続へのアップグレードを行い、
// ルーム参加から切断後の後始末までの接続ライフサイクルを管理します。
func HandleConnections(w http.ResponseWriter, r *http.Request, deps *Deps) {
	logger := deps.Logger

	// ユーザーコンテキストの取得
	clientContext, err := connection.FetchClientContext(r, logger)
	if err != nil {
		logger.Error("Error fetching client context", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// WebSocket接続へのアップグレードと確立
	conn, err := deps.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := &models.Client{
		Conn:        conn,
		MemberID:    clientContext.MemberID,
		RoomID:      clientContext.RoomID,
		DisplayName: clientContext.DisplayName,
	}

	// セッションIDの検証と復元
	sessionID := r.Header.Get("SessionID")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID != "" {
		if info := session.Validate(r.Context(), deps.Redis, sessionID, logger); info != nil {
			// セッション情報に基づいてクライアント情報を復元
			client.MemberID = info.MemberID
			client.RoomID = info.RoomID
			client.DisplayName = info.DisplayName
			// 旧セッションの削除
			if err := session.Delete(r.Context(), deps.Redis, sessionID); err != nil {
				logger.Error("Failed to delete old session", zap.Error(err))
			}
		}
	}

	// 接続の寿命に紐づくコンテキスト。リクエストコンテキストは
	// ハンドラー復帰後に使えないためここで独立させる
	connCtx, cancelConn := context.WithCancel(context.Background())

	// ルームへの参加。生存記録の書き込み→メンバー追加の順序はManagerが保証する
	if err := deps.Manager.JoinRoom(connCtx, client.RoomID, client.MemberID, client.DisplayName); err != nil {
		broadcast.SendError(client, joinErrorMessage(err), logger)
		conn.Close()
		cancelConn()
		return
	}

	currentRoom, err := deps.Store.Get(connCtx, client.RoomID)
	if err != nil {
		logger.Error("Failed to load room after join", zap.Error(err))
		conn.Close()
		cancelConn()
		return
	}
	client.IsCreator = currentRoom.Creator.MemberID == client.MemberID
	logger.Info("New client added",
		zap.String("memberID", client.MemberID),
		zap.String("roomID", client.RoomID),
		zap.Bool("isCreator", client.IsCreator))

	// プレゼンス監視は作成者の接続上でのみ起動する。
	// 全クライアントが照合を書き込むと衝突するため
	var supervisor *presence.Supervisor
	if client.IsCreator {
		settle := time.Duration(deps.Config.PresenceSettleSeconds) * time.Second
		supervisor = presence.NewSupervisor(client.RoomID, deps.Store, deps.Registry, settle, logger)
		supervisor.Start()
	}

	sess := actions.NewSession()

	// エンジンの起動・停止はルームドキュメントの観測から導出する
	var engineMu sync.Mutex
	syncEngine := func(snapshot *models.Room) {
		engineMu.Lock()
		defer engineMu.Unlock()
		switch {
		case snapshot.Status == models.RoomStatusInProgress && sess.Engine() == nil:
			engine := game.NewEngine(client.RoomID, client.MemberID, deps.Store, snapshot.Settings, logger,
				func(questionIndex int) {
					broadcast.SendRoundTimeout(client, questionIndex, logger)
				})
			sess.SetEngine(engine)
			engine.Start()
		case snapshot.Status == models.RoomStatusWaiting:
			sess.StopEngine()
		}
		// 誰かが目標スコアへ到達したらローカルのタイマーを止める。
		// 勝利は観測のみでドキュメントへの書き戻しはしない
		if game.Winner(snapshot) != nil {
			sess.StopEngine()
		}
	}

	// ルームドキュメントの購読。全クライアントはここから画面を再構築する
	unsubscribe := deps.Store.Subscribe(client.RoomID, func(snapshot *models.Room) {
		if snapshot == nil {
			// ルーム消滅（クリーンナップまたは全員退室）。ロビーへ戻す
			broadcast.SendRoomDeleted(client, client.RoomID, logger)
			conn.Close()
			return
		}
		syncEngine(snapshot)
		broadcast.SendRoomState(client, snapshot, logger)
	})

	// 参加直後の初期状態を送る（購読は以後の書き込みにしか反応しない）
	syncEngine(currentRoom)
	broadcast.SendRoomState(client, currentRoom, logger)

	// クライアントごとにメッセージ読み取りゴルーチンを起動
	go actions.HandleClient(connCtx, client, sess, deps.Manager, logger)

	// Ping/Pongを管理するゴルーチンを起動
	go func(c *models.Client) {
		defer func() {
			// 切断時の後始末。タイマー停止→購読解除→生存記録の削除の順
			sess.StopEngine()
			if supervisor != nil {
				supervisor.Stop()
			}
			unsubscribe()
			if err := deps.Registry.RemoveKey(context.Background(), c.RoomID, c.MemberID); err != nil {
				logger.Error("Failed to remove liveness record on disconnect", zap.Error(err))
			}
			c.Conn.Close()
			cancelConn()
			logger.Info("Client removed", zap.String("memberID", c.MemberID))
		}()

		// Pongを受信したら読み取りデッドラインを更新し、生存記録を書き直す
		c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
		c.Conn.SetPongHandler(func(string) error {
			c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
			err := deps.Registry.SetKey(connCtx, c.RoomID, c.MemberID,
				models.LivenessRecord{Online: true, LastSeen: time.Now()})
			if err != nil {
				logger.Error("Failed to refresh liveness record", zap.Error(err))
			}
			return nil
		})

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}(client)

	// セッションIDを発行してクライアントに返す
	lifetime := time.Duration(deps.Config.SessionLifetimeMinutes) * time.Minute
	if err := session.GenerateAndStore(connCtx, client, deps.Redis, lifetime, logger); err != nil {
		logger.Error("Failed to generate or store session ID", zap.Error(err))
	}
}

func joinErrorMessage(err error) string {
	switch err {
	case room.ErrRoomFull:
		return "Room is full"
	case room.ErrNameTaken:
		return "Nickname is already taken"
	default:
		return "Failed to join room"
	}
}
