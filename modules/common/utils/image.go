package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"log"
	"math"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	xdraw "golang.org/x/image/draw"
)

// ShrinkStep - 용량 초과 이미지 재인코딩 단계 (품질, 긴 변 최대 픽셀)
type ShrinkStep struct {
	Quality float32
	MaxEdge int
}

// ShrinkSteps - 첫 번째 시도에서 안 줄면 더 작은 목표로 한 번 더
var ShrinkSteps = []ShrinkStep{
	{Quality: 82, MaxEdge: 3072},
	{Quality: 68, MaxEdge: 2048},
}

// ConvertImageToBase64 - 이미지 바이너리를 base64로 변환
func ConvertImageToBase64(imageData []byte) string {
	return base64.StdEncoding.EncodeToString(imageData)
}

// EncodeDataURI - 이미지 바이너리를 data URI로 변환
func EncodeDataURI(imageData []byte) string {
	mimeType := DetectImageMime(imageData)
	return "data:" + mimeType + ";base64," + ConvertImageToBase64(imageData)
}

// IsDataURI - data: 로 시작하는 inline 이미지인지 확인
func IsDataURI(locator string) bool {
	return strings.HasPrefix(locator, "data:")
}

// DecodeDataURI - data URI에서 바이너리와 MIME 타입 추출
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", fmt.Errorf("not a data URI")
	}

	meta, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URI: missing comma")
	}

	mimeType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasSuffix(meta, ";base64") {
		return []byte(payload), mimeType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, mimeType, nil
}

// DetectImageMime - 매직 바이트로 이미지 MIME 타입 판별
func DetectImageMime(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}

// DecodeImage - WebP, PNG, JPEG 자동 감지 디코딩
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodeWebP - 이미지를 lossy WebP로 인코딩
func EncodeWebP(img image.Image, quality float32) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}
	return webpBuffer.Bytes(), nil
}

// EncodePNG - 이미지를 PNG로 인코딩
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeToFit - 긴 변이 maxEdge를 넘지 않도록 비율 유지 축소 (이미 작으면 원본 반환)
func ResizeToFit(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longEdge := width
	if height > longEdge {
		longEdge = height
	}
	if maxEdge <= 0 || longEdge <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(longEdge)
	newWidth := int(math.Max(1, math.Round(float64(width)*scale)))
	newHeight := int(math.Max(1, math.Round(float64(height)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}

// ShrinkToLimit - limit 바이트 이하가 되도록 품질/해상도를 낮춰 재인코딩
// ShrinkSteps 순서대로 시도하고, 마지막 단계 후에도 크면 에러
func ShrinkToLimit(imageData []byte, limit int) ([]byte, error) {
	if len(imageData) <= limit {
		return imageData, nil
	}

	img, _, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}

	current := len(imageData)
	for i, step := range ShrinkSteps {
		resized := ResizeToFit(img, step.MaxEdge)
		encoded, err := EncodeWebP(resized, step.Quality)
		if err != nil {
			return nil, err
		}

		log.Printf("🗜️  Shrink attempt %d/%d: %d bytes → %d bytes (quality: %.0f, max edge: %d)",
			i+1, len(ShrinkSteps), current, len(encoded), step.Quality, step.MaxEdge)

		if len(encoded) <= limit {
			return encoded, nil
		}
		current = len(encoded)
	}

	return nil, fmt.Errorf("image still %d bytes after %d shrink attempts (limit %d)", current, len(ShrinkSteps), limit)
}
