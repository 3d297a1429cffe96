package transfer

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/storage"
	"family-portrait-server/modules/common/utils"
)

// DefaultMaxUploadBytes - backing store 하드 리밋(10MiB) 아래로 유지하기 위한 상한
const DefaultMaxUploadBytes = 9 * 1024 * 1024

// Options - Client 설정 (zero value는 기본값)
type Options struct {
	Policy         Policy
	HTTPClient     *http.Client
	MaxUploadBytes int
	// Shrink - 용량 초과 payload 재인코딩 함수
	Shrink func(data []byte, limit int) ([]byte, error)
}

// Client - 재시도가 적용된 다운로드/업로드 primitive
type Client struct {
	store          storage.ObjectStore
	httpClient     *http.Client
	policy         Policy
	maxUploadBytes int
	shrink         func(data []byte, limit int) ([]byte, error)
}

// NewClient - Transfer 클라이언트 생성
func NewClient(store storage.ObjectStore, opts Options) *Client {
	c := &Client{
		store:          store,
		httpClient:     opts.HTTPClient,
		policy:         opts.Policy,
		maxUploadBytes: opts.MaxUploadBytes,
		shrink:         opts.Shrink,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	if c.policy.MaxAttempts == 0 {
		c.policy = DefaultPolicy()
	}
	if c.maxUploadBytes <= 0 {
		c.maxUploadBytes = DefaultMaxUploadBytes
	}
	if c.shrink == nil {
		c.shrink = utils.ShrinkToLimit
	}
	return c
}

// FetchBytes - locator(원격 URL, data URI, 저장소 locator)에서 바이너리 가져오기
func (c *Client) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	if utils.IsDataURI(locator) {
		data, _, err := utils.DecodeDataURI(locator)
		if err != nil {
			return nil, apperr.New(apperr.KindTransfer, "fetch inline image", err)
		}
		return data, nil
	}

	op := "download " + truncateString(locator, 80)

	if c.store != nil && c.store.Owns(locator) {
		return WithRetry(ctx, op, c.policy, IsRetryable, func(ctx context.Context) ([]byte, error) {
			return c.store.Get(ctx, locator)
		})
	}

	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return nil, apperr.Newf(apperr.KindTransfer, op, "unsupported locator scheme")
	}

	return WithRetry(ctx, op, c.policy, IsRetryable, func(ctx context.Context) ([]byte, error) {
		return c.httpGet(ctx, locator)
	})
}

// httpGet - 단일 HTTP 다운로드 시도
func (c *Client) httpGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

// StoreBytes - 용량 초과 시 재인코딩 후 durable 저장소에 업로드
func (c *Client) StoreBytes(ctx context.Context, data []byte, folder string) (string, error) {
	op := "upload to " + folder

	if c.store == nil {
		return "", apperr.Newf(apperr.KindTransfer, op, "no object store configured")
	}
	if len(data) == 0 {
		return "", apperr.Newf(apperr.KindTransfer, op, "empty payload")
	}

	payload := data
	if len(payload) > c.maxUploadBytes {
		log.Printf("🗜️  [Transfer] Payload %d bytes exceeds %d, re-encoding before upload", len(payload), c.maxUploadBytes)
		shrunk, err := c.shrink(payload, c.maxUploadBytes)
		if err != nil {
			return "", apperr.New(apperr.KindTransfer, op, fmt.Errorf("failed to shrink oversized payload: %w", err))
		}
		payload = shrunk
	}

	return WithRetry(ctx, op, c.policy, IsRetryable, func(ctx context.Context) (string, error) {
		return c.store.Put(ctx, payload, folder)
	})
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
