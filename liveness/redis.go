package liveness

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Krl22/Lingezshad-sub000/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "liveness:"

// RedisRegistry はRegistryのRedis実装です。
// キーにはTTLを付け、サーバークラッシュ時にも生存記録が残り続けないようにします。
// 通常の切断時はWebsocket側のクリーンナップがRemoveKeyを呼びます。
type RedisRegistry struct {
	rdb    *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewRedisRegistry(rdb *redis.Client, logger *zap.Logger, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, logger: logger, ttl: ttl}
}

func livenessKey(roomID, memberID string) string {
	return keyPrefix + roomID + ":" + memberID
}

func channelName(roomID string) string {
	return keyPrefix + roomID
}

func (r *RedisRegistry) SetKey(ctx context.Context, roomID, memberID string, rec models.LivenessRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, livenessKey(roomID, memberID), data, r.ttl).Err(); err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelName(roomID), memberID).Err()
}

func (r *RedisRegistry) RemoveKey(ctx context.Context, roomID, memberID string) error {
	if err := r.rdb.Del(ctx, livenessKey(roomID, memberID)).Err(); err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelName(roomID), memberID).Err()
}

func (r *RedisRegistry) Snapshot(ctx context.Context, roomID string) (map[string]models.LivenessRecord, error) {
	prefix := keyPrefix + roomID + ":"
	snapshot := make(map[string]models.LivenessRecord)
	iter := r.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		memberID := strings.TrimPrefix(key, prefix)
		data, err := r.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue // スキャンと取得の間に失効したキー
		}
		if err != nil {
			return nil, err
		}
		var rec models.LivenessRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.logger.Error("Failed to decode liveness record", zap.String("key", key), zap.Error(err))
			continue
		}
		snapshot[memberID] = rec
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *RedisRegistry) Subscribe(roomID string, fn func(map[string]models.LivenessRecord)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.rdb.Subscribe(ctx, channelName(roomID))

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				snapshot, err := r.Snapshot(ctx, roomID)
				if err != nil {
					r.logger.Error("Failed to read liveness snapshot",
						zap.String("roomID", roomID), zap.Error(err))
					continue
				}
				fn(snapshot)
			}
		}
	}()

	return func() {
		cancel()
		if err := pubsub.Close(); err != nil {
			r.logger.Error("Failed to close liveness subscription", zap.Error(err))
		}
	}
}
