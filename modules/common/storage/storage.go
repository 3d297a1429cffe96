package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"family-portrait-server/modules/common/utils"
)

// ObjectStore - 이미지 바이너리 durable 저장소
type ObjectStore interface {
	// Put - folder 아래에 새 고유 key로 저장하고 locator 반환
	Put(ctx context.Context, data []byte, folder string) (string, error)
	// Get - locator의 바이너리 조회
	Get(ctx context.Context, locator string) ([]byte, error)
	// Owns - 이 저장소가 발급한 locator인지 (인증된 Get이 필요한지)
	Owns(locator string) bool
}

// Client - Supabase Storage 버킷 클라이언트
type Client struct {
	supabaseURL string
	serviceKey  string
	bucket      string
	public      bool
	httpClient  *http.Client
}

// NewClient - Storage 클라이언트 생성
// public 버킷이면 Put이 공개 URL을, private 버킷이면 인증이 필요한 object URL을 반환
func NewClient(supabaseURL, serviceKey, bucket string, public bool) *Client {
	return &Client{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		bucket:      bucket,
		public:      public,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// objectKey - 파일명 생성 (folder/타임스탬프_uuid.확장자)
func objectKey(folder string, data []byte) string {
	ext := "bin"
	switch utils.DetectImageMime(data) {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}

	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	fileName := fmt.Sprintf("%d_%s.%s", timestamp, uuid.NewString(), ext)
	return path.Join(strings.Trim(folder, "/"), fileName)
}

// Put - Supabase Storage에 업로드
func (c *Client) Put(ctx context.Context, data []byte, folder string) (string, error) {
	filePath := objectKey(folder, data)
	contentType := utils.DetectImageMime(data)

	log.Printf("📤 Uploading to storage: %s/%s (%d bytes)", c.bucket, filePath, len(data))

	// Supabase Storage API URL
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.supabaseURL, c.bucket, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	log.Printf("✅ Uploaded successfully: %s/%s", c.bucket, filePath)
	return c.locatorFor(filePath), nil
}

// locatorFor - object 경로를 locator URL로 변환
func (c *Client) locatorFor(filePath string) string {
	if c.public {
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.supabaseURL, c.bucket, filePath)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.supabaseURL, c.bucket, filePath)
}

// objectPath - locator에서 버킷 내부 경로 추출
func (c *Client) objectPath(locator string) (string, bool) {
	for _, prefix := range []string{
		fmt.Sprintf("%s/storage/v1/object/public/%s/", c.supabaseURL, c.bucket),
		fmt.Sprintf("%s/storage/v1/object/%s/", c.supabaseURL, c.bucket),
	} {
		if strings.HasPrefix(locator, prefix) {
			return strings.TrimPrefix(locator, prefix), true
		}
	}
	return "", false
}

// Owns - 이 버킷의 locator인지
func (c *Client) Owns(locator string) bool {
	_, ok := c.objectPath(locator)
	return ok
}

// Get - Storage에서 이미지 다운로드 (service key 인증)
func (c *Client) Get(ctx context.Context, locator string) ([]byte, error) {
	log.Printf("📥 Downloading from storage: %s", locator)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download image: status %d, body: %s", resp.StatusCode, string(body))
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	log.Printf("✅ Image downloaded successfully: %d bytes", len(imageData))
	return imageData, nil
}

// SignURL - private object에 대한 만료되는 서명 URL 발급
func (c *Client) SignURL(ctx context.Context, locator string, expiresIn time.Duration) (string, error) {
	filePath, ok := c.objectPath(locator)
	if !ok {
		return "", fmt.Errorf("locator does not belong to bucket %s", c.bucket)
	}

	body, err := json.Marshal(map[string]int{"expiresIn": int(expiresIn.Seconds())})
	if err != nil {
		return "", err
	}

	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.supabaseURL, c.bucket, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to sign object: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(respBody, &signed); err != nil {
		return "", fmt.Errorf("failed to parse sign response: %w", err)
	}
	if signed.SignedURL == "" {
		return "", fmt.Errorf("sign response has no signedURL")
	}

	// signedURL은 /object/sign/... 형태의 상대 경로
	return c.supabaseURL + "/storage/v1" + signed.SignedURL, nil
}
