package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// WatermarkOptions - 워터마크 문구
type WatermarkOptions struct {
	// TileText - 이미지 전체에 반복되는 회전 문구
	TileText string
	// BannerTitle - 하단 배너의 작품 이름
	BannerTitle string
	// PriceLabel - 하단 배너의 unlock 가격 (예: "$9.99")
	PriceLabel string
}

const (
	tileAngleDegrees = -30.0
	// 짧은 변 대비 타일 글자 크기 비율
	tileFontRatio = 1.0 / 14.0
	// 높이 대비 배너 높이 비율
	bannerHeightRatio = 1.0 / 11.0
)

var (
	tileColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 92}
	shadowColor = color.NRGBA{R: 0, G: 0, B: 0, A: 56}
	bannerFill  = color.NRGBA{R: 0, G: 0, B: 0, A: 178}
	bannerText  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

var boldFont *opentype.Font

func init() {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded font: %v", err))
	}
	boldFont = f
}

func newFace(size float64) (font.Face, error) {
	return opentype.NewFace(boldFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// BannerLine - 하단 배너 문구
func (o WatermarkOptions) BannerLine() string {
	return fmt.Sprintf("%s  |  Unlock the full-resolution artwork for %s", o.BannerTitle, o.PriceLabel)
}

// ApplyWatermark - 회전된 반복 텍스트 타일 + 하단 배너를 합성한 새 이미지 반환
// 타일 크기를 이미지 크기에 비례시켜 잘라내기로 제거할 수 없게 한다
func ApplyWatermark(src image.Image, opts WatermarkOptions) (*image.RGBA, error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("cannot watermark empty image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	if err := drawTiles(dst, opts.TileText); err != nil {
		return nil, err
	}
	if err := drawBanner(dst, opts.BannerLine()); err != nil {
		return nil, err
	}
	return dst, nil
}

// renderTextTile - 그림자 포함 텍스트 한 줄을 투명 타일에 렌더링
func renderTextTile(text string, size float64) (*image.RGBA, error) {
	face, err := newFace(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	padding := int(size * 0.6)
	textWidth := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	textHeight := ascent + metrics.Descent.Ceil()

	tile := image.NewRGBA(image.Rect(0, 0, textWidth+padding*2, textHeight+padding*2))
	shadowOffset := int(math.Max(1, size/24))

	drawer := &font.Drawer{Dst: tile, Face: face}
	drawer.Src = image.NewUniform(shadowColor)
	drawer.Dot = fixed.P(padding+shadowOffset, padding+ascent+shadowOffset)
	drawer.DrawString(text)

	drawer.Src = image.NewUniform(tileColor)
	drawer.Dot = fixed.P(padding, padding+ascent)
	drawer.DrawString(text)

	return tile, nil
}

// drawTiles - 이미지 전체를 덮도록 회전 타일을 엇갈린 격자로 배치
func drawTiles(dst *image.RGBA, text string) error {
	width, height := dst.Bounds().Dx(), dst.Bounds().Dy()
	shortEdge := math.Min(float64(width), float64(height))
	size := math.Max(12, shortEdge*tileFontRatio)

	tile, err := renderTextTile(text, size)
	if err != nil {
		return err
	}

	tileW := float64(tile.Bounds().Dx())
	tileH := float64(tile.Bounds().Dy())
	stepX := tileW * 1.05
	stepY := tileH * 1.9

	theta := tileAngleDegrees * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// 회전 후에도 모서리가 비지 않도록 대각선 길이만큼 바깥까지 배치
	diagonal := math.Hypot(float64(width), float64(height))
	row := 0
	for cy := -diagonal / 2; cy <= float64(height)+diagonal/2; cy += stepY {
		offset := 0.0
		if row%2 == 1 {
			offset = stepX / 2
		}
		for cx := -diagonal/2 + offset; cx <= float64(width)+diagonal/2; cx += stepX {
			// tile 중심을 (cx, cy)에 두는 회전 변환
			s2d := f64.Aff3{
				cos, -sin, cx - (cos*tileW/2 - sin*tileH/2),
				sin, cos, cy - (sin*tileW/2 + cos*tileH/2),
			}
			xdraw.BiLinear.Transform(dst, s2d, tile, tile.Bounds(), xdraw.Over, nil)
		}
		row++
	}
	return nil
}

// drawBanner - 하단 고정 배너 (반투명 검정 띠 + 가운데 정렬 문구)
func drawBanner(dst *image.RGBA, line string) error {
	width, height := dst.Bounds().Dx(), dst.Bounds().Dy()
	bannerH := int(math.Max(24, float64(height)*bannerHeightRatio))
	if bannerH > height {
		bannerH = height
	}

	band := image.Rect(0, height-bannerH, width, height)
	draw.Draw(dst, band, image.NewUniform(bannerFill), image.Point{}, draw.Over)

	size := float64(bannerH) * 0.42
	face, err := newFace(size)
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}

	// 폭의 92%를 넘으면 글자 크기 축소
	maxWidth := float64(width) * 0.92
	if textWidth := float64(font.MeasureString(face, line).Ceil()); textWidth > maxWidth {
		face.Close()
		size = math.Max(6, size*maxWidth/textWidth)
		face, err = newFace(size)
		if err != nil {
			return fmt.Errorf("failed to create font face: %w", err)
		}
	}
	defer face.Close()

	textWidth := font.MeasureString(face, line).Ceil()
	metrics := face.Metrics()
	textHeight := metrics.Ascent.Ceil() + metrics.Descent.Ceil()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(bannerText),
		Face: face,
		Dot: fixed.P(
			(width-textWidth)/2,
			height-bannerH+(bannerH-textHeight)/2+metrics.Ascent.Ceil(),
		),
	}
	drawer.DrawString(line)
	return nil
}
