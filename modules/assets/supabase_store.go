package assets

import (
	"context"
	"time"

	"family-portrait-server/modules/common/database"
)

// rowClient - database.Client 중 Store가 쓰는 부분
type rowClient interface {
	InsertAssetRow(row database.AssetRow) error
	FetchAssetRow(assetID string) (*database.AssetRow, error)
	DeleteExpiredAssetRows(now time.Time) (int, error)
}

// SupabaseStore - Supabase 테이블 기반 Store
type SupabaseStore struct {
	db rowClient
}

// NewSupabaseStore - SupabaseStore 생성
func NewSupabaseStore(db rowClient) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) Put(ctx context.Context, record Record) error {
	return s.db.InsertAssetRow(database.AssetRow{
		AssetID:      record.AssetID,
		CleanLocator: record.CleanLocator,
		CreatedAt:    record.CreatedAt,
		ExpiresAt:    record.ExpiresAt,
	})
}

func (s *SupabaseStore) Get(ctx context.Context, assetID string) (*Record, error) {
	row, err := s.db.FetchAssetRow(assetID)
	if err != nil || row == nil {
		return nil, err
	}
	return &Record{
		AssetID:      row.AssetID,
		CleanLocator: row.CleanLocator,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
	}, nil
}

func (s *SupabaseStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	return s.db.DeleteExpiredAssetRows(now)
}
