package assets

import (
	"context"
	"sync"
	"time"
)

// RecordTTL - clean 이미지 레코드 유효 기간
const RecordTTL = 24 * time.Hour

// Record - opaque asset id와 clean locator 바인딩
// 미결제 호출자에게 노출되는 응답에는 절대 직렬화하지 않는다
type Record struct {
	AssetID      string    `json:"assetId"`
	CleanLocator string    `json:"cleanLocator"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// NewRecord - createdAt 기준 24시간 뒤 만료되는 레코드
func NewRecord(assetID, cleanLocator string, createdAt time.Time) Record {
	return Record{
		AssetID:      assetID,
		CleanLocator: cleanLocator,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(RecordTTL),
	}
}

// Expired - 레코드 자체 타임스탬프 기준 만료 여부
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store - AssetRecord 저장소
// 각 Put은 새 고유 id를 쓰므로 writer 간 조정이 필요 없다
type Store interface {
	Put(ctx context.Context, record Record) error
	// Get - 없으면 (nil, nil)
	Get(ctx context.Context, assetID string) (*Record, error)
	// SweepExpired - now 기준 만료 레코드 삭제, 삭제 수 반환
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore - 프로세스 메모리 Store (테스트, ASSET_STORE=memory)
type MemoryStore struct {
	records sync.Map
}

// NewMemoryStore - 빈 MemoryStore 생성
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Put(ctx context.Context, record Record) error {
	m.records.Store(record.AssetID, record)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, assetID string) (*Record, error) {
	value, ok := m.records.Load(assetID)
	if !ok {
		return nil, nil
	}
	record := value.(Record)
	return &record, nil
}

func (m *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	m.records.Range(func(key, value interface{}) bool {
		if value.(Record).Expired(now) {
			m.records.Delete(key)
			removed++
		}
		return true
	})
	return removed, nil
}
