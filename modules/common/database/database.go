package database

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/supabase-community/supabase-go"
)

// AssetRow - family_portrait_assets 테이블 구조
type AssetRow struct {
	AssetID      string    `json:"asset_id"`
	CleanLocator string    `json:"clean_locator"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Client struct {
	supabase *supabase.Client
	table    string
}

// NewClient - Database 클라이언트 생성
func NewClient(supabaseURL, serviceKey, table string) (*Client, error) {
	supabaseClient, err := supabase.NewClient(supabaseURL, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Client{
		supabase: supabaseClient,
		table:    table,
	}, nil
}

// InsertAssetRow - asset 레코드 생성 (asset_id가 고유하므로 충돌 처리 없음)
func (c *Client) InsertAssetRow(row AssetRow) error {
	insertData := map[string]interface{}{
		"asset_id":      row.AssetID,
		"clean_locator": row.CleanLocator,
		"created_at":    row.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at":    row.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}

	_, _, err := c.supabase.From(c.table).
		Insert(insertData, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert asset record: %w", err)
	}

	log.Printf("💾 Asset record stored (expires: %s)", row.ExpiresAt.Format(time.RFC3339))
	return nil
}

// FetchAssetRow - asset_id로 레코드 조회 (없으면 nil, nil)
func (c *Client) FetchAssetRow(assetID string) (*AssetRow, error) {
	var rows []AssetRow

	data, _, err := c.supabase.From(c.table).
		Select("*", "", false).
		Eq("asset_id", assetID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}

	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse asset response: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// DeleteExpiredAssetRows - expires_at이 now 이전인 레코드 삭제, 삭제 수 반환
func (c *Client) DeleteExpiredAssetRows(now time.Time) (int, error) {
	data, _, err := c.supabase.From(c.table).
		Delete("representation", "").
		Lt("expires_at", now.UTC().Format(time.RFC3339Nano)).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired assets: %w", err)
	}

	var deleted []AssetRow
	if err := json.Unmarshal(data, &deleted); err != nil {
		return 0, fmt.Errorf("failed to parse delete response: %w", err)
	}
	return len(deleted), nil
}
