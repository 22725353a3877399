package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"
	"github.com/Krl22/Lingezshad-sub000/store"

	"go.uber.org/zap"
)

// 勝利に必要な正解数
const TargetProgress = 10

// スペシャル問題になる確率
const specialProbability = 0.2

var ErrNotMember = errors.New("submitting member is not in the room")

// SubmitResult は回答送信１回分の結果です。
type SubmitResult struct {
	Correct       bool `json:"correct"`
	Special       bool `json:"special"`
	Awarded       int  `json:"awarded"`
	QuestionIndex int  `json:"questionIndex"` // 次の問題のインデックス
}

// Engine は１クライアント分の出題ループを駆動します。
// 問題インデックスとスペシャルフラグはクライアントローカルで、
// 共有されるのはmembers[].progressだけです。
// 各接続が独立に同じループを再現するため、ラウンドの権威ノードは存在しません
type Engine struct {
	roomID   string
	memberID string
	store    store.RoomStore
	settings models.GameSettings
	logger   *zap.Logger
	randGen  *rand.Rand

	// ラウンドのタイムアウトで問題が自動送りされた時の通知先（次のインデックスを渡す）
	onTimeout func(questionIndex int)

	mu            sync.Mutex
	questionIndex int
	round         int // 世代カウンタ。閉じたラウンドへのタイムアウト発火を無効化する
	special       bool
	roundStart    time.Time
	timer         *time.Timer
	stopped       bool
}

func NewEngine(roomID, memberID string, st store.RoomStore, settings models.GameSettings, logger *zap.Logger, onTimeout func(int)) *Engine {
	return &Engine{
		roomID:    roomID,
		memberID:  memberID,
		store:     st,
		settings:  settings,
		logger:    logger,
		randGen:   rand.New(rand.NewSource(time.Now().UnixNano())),
		onTimeout: onTimeout,
	}
}

// Start は最初のラウンドを開始します。
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.beginRoundLocked()
}

// Stop は保留中のラウンドタイマーを止めます。
// ラウンド進行・ルーム退出・切断のすべての経路でここを通ること
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.clearTimerLocked()
}

// QuestionIndex は現在のローカル問題位置を返します。
func (e *Engine) QuestionIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questionIndex
}

func (e *Engine) clearTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// 新しいラウンドの準備。スペシャルフラグの抽選と制限時間タイマーの起動
func (e *Engine) beginRoundLocked() {
	if e.stopped {
		return
	}
	e.round++
	e.roundStart = time.Now()
	e.special = e.settings.SpecialQuestionsEnabled && e.randGen.Float64() < specialProbability
	e.armTimerLocked(time.Duration(e.settings.TimeLimitSeconds) * time.Second)
}

// 制限時間タイマーを張り直します。
// 発火時に世代が現在のラウンドと一致する場合のみ有効
func (e *Engine) armTimerLocked(d time.Duration) {
	e.clearTimerLocked()
	if !e.settings.TimeLimitEnabled || e.settings.TimeLimitSeconds <= 0 {
		return
	}
	gen := e.round
	e.timer = time.AfterFunc(d, func() { e.timeout(gen) })
}

// 制限時間切れ。回答をクレジットせずに問題だけ先に進める
func (e *Engine) timeout(gen int) {
	e.mu.Lock()
	if e.stopped || gen != e.round {
		// 採点によってラウンドが閉じられた後の発火。無視する
		e.mu.Unlock()
		return
	}
	e.questionIndex++
	next := e.questionIndex
	e.beginRoundLocked()
	cb := e.onTimeout
	e.mu.Unlock()

	e.logger.Info("Round timed out",
		zap.String("roomID", e.roomID), zap.String("memberID", e.memberID), zap.Int("next", next))
	if cb != nil {
		cb(next)
	}
}

// SubmitAnswer は回答をローカルで採点し、正解ならスコア更新のトランザクションを発行します。
// トランザクションは必ず最新のメンバーリストを読み直してから書くため、
// ２人が同時に正解しても更新が失われることはなく、同じ回答の再送も安全です。
func (e *Engine) SubmitAnswer(ctx context.Context, answer string) (SubmitResult, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return SubmitResult{}, errors.New("engine is stopped")
	}
	index := e.questionIndex
	special := e.special
	elapsed := time.Since(e.roundStart)
	// 採点に入った時点でラウンドを閉じる。閉じずにトランザクション中に
	// タイマーが発火すると、同じラウンドで問題が二重に進んでしまう
	e.round++
	e.clearTimerLocked()
	e.mu.Unlock()

	correct := CheckAnswer(index, answer)
	awarded := 0

	if correct {
		awarded = 1
		if e.settings.RapidBonusEnabled && elapsed <= time.Duration(e.settings.RapidBonusSeconds)*time.Second {
			awarded = 2
		}
		err := e.store.Transaction(ctx, e.roomID, func(room *models.Room) (*models.Room, error) {
			if room == nil {
				return nil, store.ErrNotFound
			}
			idx := room.FindMember(e.memberID)
			if idx < 0 {
				return nil, ErrNotMember
			}
			room.Members[idx].Progress += awarded
			if special {
				// スペシャル問題の正解は他の全メンバーを1減点。下限は0
				for i := range room.Members {
					if i == idx {
						continue
					}
					if room.Members[i].Progress > 0 {
						room.Members[i].Progress--
					}
				}
			}
			return room, nil
		})
		if err != nil {
			// 失敗した場合はローカルの問題位置を進めず、
			// ラウンドの残り時間でタイマーを張り直す。
			// 同じ回答の再送で再試行できる
			e.mu.Lock()
			if !e.stopped {
				remaining := time.Duration(e.settings.TimeLimitSeconds)*time.Second - elapsed
				if remaining < 0 {
					remaining = 0
				}
				e.armTimerLocked(remaining)
			}
			e.mu.Unlock()
			e.logger.Error("Score transaction failed",
				zap.String("roomID", e.roomID), zap.String("memberID", e.memberID), zap.Error(err))
			return SubmitResult{}, err
		}
	}

	// 採点が済んだので次のラウンドへ
	e.mu.Lock()
	e.questionIndex++
	next := e.questionIndex
	e.beginRoundLocked()
	e.mu.Unlock()

	return SubmitResult{
		Correct:       correct,
		Special:       special,
		Awarded:       awarded,
		QuestionIndex: next,
	}, nil
}

// Winner は勝者を返します。観測専用でルームドキュメントには書き戻しません。
// 勝者がいない場合はnil
func Winner(room *models.Room) *models.Member {
	if room == nil {
		return nil
	}
	for i := range room.Members {
		if room.Members[i].Progress >= TargetProgress {
			return &room.Members[i]
		}
	}
	return nil
}
