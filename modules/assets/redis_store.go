package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "portrait:asset:"
	// redisTTLGrace - 만료 판단은 레코드 타임스탬프로 하고, Redis TTL은 청소용
	redisTTLGrace = time.Hour
)

// RedisStore - Redis 기반 Store (레코드 JSON + TTL)
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore - RedisStore 생성
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func redisKey(assetID string) string {
	return redisKeyPrefix + assetID
}

func (s *RedisStore) Put(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal asset record: %w", err)
	}

	ttl := record.ExpiresAt.Sub(s.now()) + redisTTLGrace
	if ttl <= 0 {
		ttl = redisTTLGrace
	}

	// NX: 같은 id가 이미 있으면 덮어쓰지 않음
	ok, err := s.rdb.SetNX(ctx, redisKey(record.AssetID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis SETNX failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("asset id already exists")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, assetID string) (*Record, error) {
	payload, err := s.rdb.Get(ctx, redisKey(assetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to parse asset record: %w", err)
	}
	return &record, nil
}

// SweepExpired - SCAN으로 만료 레코드 삭제 (TTL grace 기간에 남은 것들)
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("redis GET failed: %w", err)
		}

		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			log.Printf("⚠️  [Assets] Removing unreadable record %s: %v", key, err)
		} else if !record.Expired(now) {
			continue
		}

		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("redis DEL failed: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis SCAN failed: %w", err)
	}
	return removed, nil
}
