package assets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	assetIDPrefix   = "ast_"
	assetIDByteSize = 32
)

// NewAssetID - crypto/rand 256bit 기반 opaque id (순번, 시간 등에서 유도하지 않음)
func NewAssetID() (string, error) {
	buf := make([]byte, assetIDByteSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return assetIDPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidAssetID - 형식 검사 (저장소 조회 전에 잘못된 입력 거르기)
func ValidAssetID(assetID string) bool {
	if !strings.HasPrefix(assetID, assetIDPrefix) {
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(assetID, assetIDPrefix))
	return err == nil && len(decoded) == assetIDByteSize
}
