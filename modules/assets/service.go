package assets

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/utils"
)

const (
	CleanFolder   = "family-portrait/clean"
	PreviewFolder = "family-portrait/previews"
)

// Transferer - Transfer Layer 중 이 단계가 쓰는 부분
type Transferer interface {
	FetchBytes(ctx context.Context, locator string) ([]byte, error)
	StoreBytes(ctx context.Context, data []byte, folder string) (string, error)
}

// Warning - 치명적이지 않지만 호출자에게 알려야 하는 상태
type Warning struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

// SecureResult - 공개 가능한 결과 (clean locator는 포함하지 않음)
type SecureResult struct {
	PreviewLocator string
	AssetID        string
	Warnings       []Warning
}

// Service - Secure Asset Indirection & Watermark 단계
type Service struct {
	store   Store
	clean   Transferer // private 버킷
	preview Transferer // public 버킷
	options WatermarkOptions
	now     func() time.Time
	newID   func() (string, error)
	encode  func(img image.Image) ([]byte, error)
}

// NewService - asset Service 생성
func NewService(store Store, clean, preview Transferer, options WatermarkOptions) *Service {
	return &Service{
		store:   store,
		clean:   clean,
		preview: preview,
		options: options,
		now:     time.Now,
		newID:   NewAssetID,
		encode: func(img image.Image) ([]byte, error) {
			return utils.EncodeWebP(img, 85)
		},
	}
}

// SetEncoder - preview 인코더 교체 (기본 WebP q85)
func (s *Service) SetEncoder(encode func(img image.Image) ([]byte, error)) {
	s.encode = encode
}

// SetClock - 시간 함수 교체
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func degraded(format string, args ...interface{}) Warning {
	return Warning{Code: apperr.KindPersistenceDegraded, Message: fmt.Sprintf(format, args...)}
}

// Secure - clean 사본을 먼저 저장해 asset id를 발급하고, 워터마크 preview를 공개 저장
// 저장이 실패해도 요청을 실패시키지 않고 provider locator로 degrade + warning
func (s *Service) Secure(ctx context.Context, providerLocator string) (*SecureResult, error) {
	result := &SecureResult{PreviewLocator: providerLocator}

	log.Printf("🔐 [Secure] Securing final image: %s", truncateString(providerLocator, 80))

	raw, fetchErr := s.clean.FetchBytes(ctx, providerLocator)
	if fetchErr != nil {
		log.Printf("⚠️  [Secure] Failed to fetch final image, degrading to provider locator: %v", fetchErr)
		result.Warnings = append(result.Warnings, degraded("final image could not be downloaded; preview is the provider's temporary, unwatermarked link"))
	}

	// 1. clean 사본 저장
	cleanLocator := providerLocator
	if raw != nil {
		stored, err := s.clean.StoreBytes(ctx, raw, CleanFolder)
		if err != nil {
			log.Printf("⚠️  [Secure] Failed to persist clean image: %v", err)
			result.Warnings = append(result.Warnings, degraded("clean image not persisted; unlock will resolve to the provider's temporary link"))
		} else {
			cleanLocator = stored
		}
	}

	// 2. opaque asset id 발급 (degrade 상황에서도 반드시 발급)
	assetID, err := s.newID()
	if err != nil {
		return nil, apperr.New(apperr.KindGenerationFailed, "mint asset id", err)
	}
	result.AssetID = assetID

	record := NewRecord(assetID, cleanLocator, s.now())
	if err := s.store.Put(ctx, record); err != nil {
		log.Printf("⚠️  [Secure] Failed to store asset record: %v", err)
		result.Warnings = append(result.Warnings, degraded("asset record not stored; unlock may not resolve"))
	} else {
		log.Printf("✅ [Secure] Asset record stored (expires: %s)", record.ExpiresAt.Format(time.RFC3339))
	}

	if raw == nil {
		return result, nil
	}

	// 3. 워터마크 preview 합성 후 공개 저장
	previewLocator, err := s.storePreview(ctx, raw)
	if err != nil {
		log.Printf("⚠️  [Secure] Failed to build preview, degrading to provider locator: %v", err)
		result.Warnings = append(result.Warnings, degraded("watermarked preview not persisted; preview is the provider's temporary link"))
		return result, nil
	}
	result.PreviewLocator = previewLocator

	log.Printf("✅ [Secure] Preview ready: %s", truncateString(previewLocator, 80))
	return result, nil
}

func (s *Service) storePreview(ctx context.Context, raw []byte) (string, error) {
	img, _, err := utils.DecodeImage(raw)
	if err != nil {
		return "", err
	}

	marked, err := ApplyWatermark(img, s.options)
	if err != nil {
		return "", err
	}

	encoded, err := s.encode(marked)
	if err != nil {
		return "", err
	}

	return s.preview.StoreBytes(ctx, encoded, PreviewFolder)
}

// Resolve - asset id → clean locator
// 모르는 id, 레코드 타임스탬프 기준 만료된 id는 NotFound (저장소에 남아 있어도)
// 호출자의 인가 계층이 unlock을 확인한 뒤에만 호출할 것
func (s *Service) Resolve(ctx context.Context, assetID string) (string, error) {
	if !ValidAssetID(assetID) {
		return "", apperr.Newf(apperr.KindNotFound, "resolve asset", "unknown asset id")
	}

	record, err := s.store.Get(ctx, assetID)
	if err != nil {
		return "", apperr.New(apperr.KindTransfer, "resolve asset", err)
	}
	if record == nil {
		return "", apperr.Newf(apperr.KindNotFound, "resolve asset", "unknown asset id")
	}
	if record.Expired(s.now()) {
		return "", apperr.Newf(apperr.KindNotFound, "resolve asset", "asset expired at %s", record.ExpiresAt.Format(time.RFC3339))
	}
	return record.CleanLocator, nil
}

// SweepExpired - 만료 레코드 청소
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.SweepExpired(ctx, s.now())
}

// StartSweeper - interval마다 만료 레코드 청소 (ctx 종료 시 중단)
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.SweepExpired(ctx)
				if err != nil {
					log.Printf("⚠️  [Assets] Sweep failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("🧹 [Assets] Swept %d expired asset records", removed)
				}
			}
		}
	}()

	log.Printf("🔄 [Assets] Started expiry sweeper (every %v)", interval)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
