package utils

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	return img
}

func TestDataURIRoundTrip(t *testing.T) {
	pngData, err := EncodePNG(solidImage(4, 4))
	require.NoError(t, err)

	uri := EncodeDataURI(pngData)
	assert.True(t, IsDataURI(uri))
	assert.Contains(t, uri, "data:image/png;base64,")

	decoded, mimeType, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, pngData, decoded)
}

func TestDecodeDataURIRejectsMalformed(t *testing.T) {
	_, _, err := DecodeDataURI("data:image/png;base64")
	assert.Error(t, err)

	_, _, err = DecodeDataURI("https://example.com/a.png")
	assert.Error(t, err)

	_, _, err = DecodeDataURI("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestDetectImageMime(t *testing.T) {
	assert.Equal(t, "image/png", DetectImageMime([]byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, "image/jpeg", DetectImageMime([]byte("\xff\xd8\xff\xe0")))
	assert.Equal(t, "image/webp", DetectImageMime([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", DetectImageMime([]byte("hello")))
}

func TestResizeToFit(t *testing.T) {
	src := solidImage(400, 200)

	resized := ResizeToFit(src, 100)
	assert.Equal(t, 100, resized.Bounds().Dx())
	assert.Equal(t, 50, resized.Bounds().Dy())

	// 이미 작은 이미지는 그대로
	assert.Same(t, src, ResizeToFit(src, 1000))
}

// noisyImage - 압축이 잘 안 되는 고정 seed 노이즈 이미지
func noisyImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestShrinkToLimitSteps(t *testing.T) {
	original := ShrinkSteps
	ShrinkSteps = []ShrinkStep{
		{Quality: 82, MaxEdge: 320},
		{Quality: 68, MaxEdge: 160},
	}
	defer func() { ShrinkSteps = original }()

	src := noisyImage(640, 480)
	input, err := EncodePNG(src)
	require.NoError(t, err)

	// 각 단계가 만들어낼 크기
	sizes := make([]int, len(ShrinkSteps))
	for i, step := range ShrinkSteps {
		encoded, err := EncodeWebP(ResizeToFit(src, step.MaxEdge), step.Quality)
		require.NoError(t, err)
		sizes[i] = len(encoded)
	}
	require.Greater(t, len(input), sizes[0])
	require.Less(t, sizes[1], sizes[0])

	tests := []struct {
		name     string
		limit    int
		wantStep int // -1이면 에러
	}{
		{"first step fits", sizes[0], 0},
		{"second step takes over", sizes[0] - 1, 1},
		{"second step at exact limit", sizes[1], 1},
		{"both steps too large", sizes[1] - 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ShrinkToLimit(input, tt.limit)
			if tt.wantStep < 0 {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "after 2 shrink attempts")
				return
			}
			require.NoError(t, err)

			assert.Equal(t, "image/webp", DetectImageMime(out))
			assert.Len(t, out, sizes[tt.wantStep])
			assert.LessOrEqual(t, len(out), tt.limit)

			img, format, err := DecodeImage(out)
			require.NoError(t, err)
			assert.Equal(t, "webp", format)
			maxEdge := ShrinkSteps[tt.wantStep].MaxEdge
			assert.LessOrEqual(t, img.Bounds().Dx(), maxEdge)
			assert.LessOrEqual(t, img.Bounds().Dy(), maxEdge)
		})
	}
}

func TestShrinkToLimitRejectsUndecodableInput(t *testing.T) {
	_, err := ShrinkToLimit([]byte("definitely not an image"), 4)
	assert.Error(t, err)
}

func TestShrinkToLimitPassThrough(t *testing.T) {
	data := []byte("tiny")
	out, err := ShrinkToLimit(data, 1024)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
