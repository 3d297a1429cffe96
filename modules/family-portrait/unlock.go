package familyportrait

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Unlocker - 결제(checkout) 쪽이 기록한 unlock 여부
type Unlocker interface {
	IsUnlocked(ctx context.Context, assetID string) (bool, error)
}

// RedisUnlocker - checkout이 portrait:unlocked:{assetId} 키를 남기는 ledger
type RedisUnlocker struct {
	rdb *redis.Client
}

// NewRedisUnlocker - RedisUnlocker 생성
func NewRedisUnlocker(rdb *redis.Client) *RedisUnlocker {
	return &RedisUnlocker{rdb: rdb}
}

func unlockKey(assetID string) string {
	return fmt.Sprintf("portrait:unlocked:%s", assetID)
}

func (u *RedisUnlocker) IsUnlocked(ctx context.Context, assetID string) (bool, error) {
	n, err := u.rdb.Exists(ctx, unlockKey(assetID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock ledger: %w", err)
	}
	return n > 0, nil
}

// MarkUnlocked - ledger에 unlock 기록 (운영 CLI / checkout 연동용)
func (u *RedisUnlocker) MarkUnlocked(ctx context.Context, assetID string, ttl time.Duration) error {
	if err := u.rdb.Set(ctx, unlockKey(assetID), time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to write unlock ledger: %w", err)
	}
	return nil
}

// LockedUnlocker - ledger가 없는 환경: 아무것도 unlock 되지 않음
type LockedUnlocker struct{}

func (LockedUnlocker) IsUnlocked(context.Context, string) (bool, error) {
	return false, nil
}
