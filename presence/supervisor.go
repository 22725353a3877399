package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Krl22/Lingezshad-sub000/liveness"
	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"go.uber.org/zap"
)

// 生存セットに変化が無かった場合にトランザクションを中断するための内部エラー
var errNoStale = errors.New("no stale members")

// TTL切れで消えた生存記録はpub/subイベントを伴わないため、
// 通知が無くても一定間隔で照合を予約する
const reconcileTick = 30 * time.Second

// Supervisor はルームのメンバーリストを実際の接続状況と一致させます。
// １ルームにつき作成者のクライアント接続上でのみ起動します。
// 全クライアントが書き込むとメンバーリストの更新が衝突するため
type Supervisor struct {
	roomID   string
	store    store.RoomStore
	registry liveness.Registry
	settle   time.Duration
	tick     time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	timer       *time.Timer
	unsubscribe func()
	done        chan struct{}
	stopped     bool
}

func NewSupervisor(roomID string, st store.RoomStore, registry liveness.Registry, settle time.Duration, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		roomID:   roomID,
		store:    st,
		registry: registry,
		settle:   settle,
		tick:     reconcileTick,
		logger:   logger,
	}
}

// Start は生存セットの購読を開始します。
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.registry.Subscribe(s.roomID, func(map[string]models.LivenessRecord) {
		s.scheduleReconcile()
	})
	s.done = make(chan struct{})
	go s.tickLoop(s.done, s.tick)
}

func (s *Supervisor) tickLoop(done chan struct{}, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.scheduleReconcile()
		}
	}
}

// Stop は購読と保留中の照合タイマーを解除します。
// 作成者の切断時・ルーム削除時に必ず呼ぶこと
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// 変化のたびに猶予時間後の照合を予約します。既存の予約は置き換え。
// 猶予時間は再接続中のクライアントの生存記録が再出現するのを待つためのもの
func (s *Supervisor) scheduleReconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.settle, func() {
		if err := s.Reconcile(context.Background()); err != nil {
			s.logger.Error("Presence reconcile failed",
				zap.String("roomID", s.roomID), zap.Error(err))
		}
	})
}

// Reconcile はメンバーリストと生存セットを読み直し、
// 生存記録の無いメンバーを除去します。全員が不在ならルームを削除します。
func (s *Supervisor) Reconcile(ctx context.Context) error {
	snapshot, err := s.registry.Snapshot(ctx, s.roomID)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, s.roomID, func(room *models.Room) (*models.Room, error) {
		if room == nil {
			return nil, errNoStale // ルームは既に削除済み
		}
		alive := make([]models.Member, 0, len(room.Members))
		stale := make([]string, 0)
		for _, m := range room.Members {
			if _, ok := snapshot[m.MemberID]; ok {
				alive = append(alive, m)
			} else {
				stale = append(stale, m.MemberID)
			}
		}
		if len(stale) == 0 {
			return nil, errNoStale
		}
		s.logger.Info("Evicting stale members",
			zap.String("roomID", s.roomID), zap.Strings("stale", stale))
		if len(alive) == 0 {
			return nil, nil // 生存メンバーなし。ルームを削除
		}
		room.Members = alive
		return room, nil
	})
	if errors.Is(err, errNoStale) {
		return nil
	}
	return err
}
