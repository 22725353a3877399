package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Krl22/Lingezshad-sub000/arena"    // マルチプレイのWebSocket処理
	"github.com/Krl22/Lingezshad-sub000/database" // PostgreSQLとRedisの初期化
	"github.com/Krl22/Lingezshad-sub000/handlers" // HTTPリクエストの処理
	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/middlewares"
	"github.com/Krl22/Lingezshad-sub000/migrations"
	"github.com/Krl22/Lingezshad-sub000/room"
	"github.com/Krl22/Lingezshad-sub000/store"
	"github.com/Krl22/Lingezshad-sub000/utils" // ロガーの初期化とCronジョブ（ルームの定期クリーンナップ）

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

func main() {
	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	// 設定ファイルの読み込み
	config, err := database.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		rdb, err = database.InitRedis(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	if err := migrations.Migrate(db, logger); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// ストアとレジストリの組み立て
	roomStore := store.NewGormStore(db, logger)
	registry := liveness.NewRedisRegistry(rdb, logger,
		time.Duration(config.LivenessTTLSeconds)*time.Second)
	manager := room.NewManager(roomStore, registry, logger)

	// クーロンスケジューラのセットアップと呼び出し
	go utils.CronSweeper(roomStore, logger,
		time.Duration(config.SweepIntervalMinutes)*time.Minute,
		time.Duration(config.RoomRetentionHours)*time.Hour)

	// Websocket接続で用いるアップグレーダー
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	wsDeps := &arena.Deps{
		Store:    roomStore,
		Registry: registry,
		Manager:  manager,
		Redis:    rdb,
		Config:   config,
		Logger:   logger,
		Upgrader: upgrader,
	}

	router := gin.Default()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"}, //ここにデプロイサーバーのIPアドレスを設定
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	//各HTTPリクエストのルーティング
	router.POST("/auth/guest", func(c *gin.Context) {
		handlers.GuestToken(c, logger)
	})

	authorized := router.Group("/", middlewares.AuthMiddleware(logger))
	authorized.POST("/room/create", func(c *gin.Context) {
		handlers.RoomCreate(c, manager, logger)
	})
	authorized.POST("/room/join", func(c *gin.Context) {
		handlers.RoomJoin(c, manager, logger)
	})
	authorized.DELETE("/room/leave", func(c *gin.Context) {
		handlers.RoomLeave(c, manager, logger)
	})
	authorized.PUT("/room/settings", func(c *gin.Context) {
		handlers.SettingsUpdate(c, manager, logger)
	})
	authorized.PUT("/room/start", func(c *gin.Context) {
		handlers.GameStart(c, manager, logger)
	})
	authorized.PUT("/room/return", func(c *gin.Context) {
		handlers.ReturnToRoom(c, manager, logger)
	})

	router.GET("/ws", func(c *gin.Context) {
		arena.HandleConnections(c.Writer, c.Request, wsDeps)
	})

	// テスト時はHTTPサーバーとして運用。デフォルトポートは ":8080"
	router.Run()

	// // 本番環境ではコメントアウトを解除し、HTTPSサーバーとして運用
	// err = router.RunTLS(":443", "path/to/cert.pem", "path/to/key.pem")
	// if err != nil {
	// 	logger.Fatal("Failed to run HTTPS server: ", zap.Error(err))
	// }
}
