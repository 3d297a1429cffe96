package familyportrait

import (
	"context"
	"log"
	"strings"

	"family-portrait-server/modules/assets"
	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/progress"
)

// ReferenceFolder - 업로드된 참조 사진 저장 경로
const ReferenceFolder = "family-portrait/references"

// Securer - 최종 이미지 보호 단계 (assets.Service)
type Securer interface {
	Secure(ctx context.Context, providerLocator string) (*assets.SecureResult, error)
	Resolve(ctx context.Context, assetID string) (string, error)
}

// Service - family portrait 생성 파이프라인
type Service struct {
	tasks    *TaskClient
	photos   Storer // public 버킷 (참조 사진, pass 간 carry)
	securer  Securer
	notifier progress.Notifier
	defaults GenerateOptions
}

// NewService - Service 생성
func NewService(tasks *TaskClient, photos Storer, securer Securer, notifier progress.Notifier, defaults GenerateOptions) *Service {
	if notifier == nil {
		notifier = progress.Nop{}
	}
	return &Service{
		tasks:    tasks,
		photos:   photos,
		securer:  securer,
		notifier: notifier,
		defaults: defaults,
	}
}

func (s *Service) options(req *GenerateRequest) GenerateOptions {
	opts := s.defaults
	if req.AspectRatio != "" {
		opts.AspectRatio = req.AspectRatio
	}
	if req.Resolution != "" {
		opts.Resolution = strings.ToUpper(req.Resolution)
	}
	if req.OutputFormat != "" {
		opts.OutputFormat = strings.ToLower(req.OutputFormat)
	}
	return opts
}

// UploadPhotos - 구성원 사진을 저장소로 옮긴다, 실패한 사진은 건너뛰고 이름만 보고 (soft failure)
func (s *Service) UploadPhotos(ctx context.Context, members []Member) ([]PhotoReference, []string) {
	var uploaded []PhotoReference
	var failed []string

	for _, m := range members {
		if strings.TrimSpace(m.Photo) == "" {
			continue
		}

		ref := PhotoReference{PersonID: m.ID, PersonName: m.Name, SourceLocator: m.Photo}
		locator, err := s.uploadPhoto(ctx, ref.SourceLocator)
		if err != nil {
			softErr := apperr.New(apperr.KindUploadSoft, "upload photo "+m.ID, err)
			log.Printf("⚠️  [Upload] Skipping photo of %s: %v", m.Name, softErr)
			failed = append(failed, m.Name)
			continue
		}

		ref.SourceLocator = locator
		ref.Uploaded = true
		uploaded = append(uploaded, ref)
	}

	log.Printf("📸 [Upload] %d photo(s) uploaded, %d skipped", len(uploaded), len(failed))
	return uploaded, failed
}

func (s *Service) uploadPhoto(ctx context.Context, source string) (string, error) {
	data, err := s.photos.FetchBytes(ctx, source)
	if err != nil {
		return "", err
	}
	return s.photos.StoreBytes(ctx, data, ReferenceFolder)
}

// Generate - 검증 → 사진 업로드 → 계획 → pass 실행 → 최종 이미지 보호
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GeneratedArtifact, error) {
	artifact, err := s.generate(ctx, req)
	if err != nil {
		s.notifier.Notify(req.SessionID, progress.Event{
			Type:    progress.EventFailed,
			Message: err.Error(),
			Data:    map[string]interface{}{"code": string(apperr.KindOf(err))},
		})
		return nil, err
	}

	s.notifier.Notify(req.SessionID, progress.Event{
		Type: progress.EventCompleted,
		Data: map[string]interface{}{"previewUrl": artifact.PreviewURL, "assetId": artifact.AssetID},
	})
	return artifact, nil
}

func (s *Service) generate(ctx context.Context, req *GenerateRequest) (*GeneratedArtifact, error) {
	// provider 미설정이면 아무 작업도 하지 않는다
	if s.tasks == nil || !s.tasks.Configured() {
		return nil, apperr.Newf(apperr.KindConfiguration, "generate", "generation provider is not configured")
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	log.Printf("🌳 [FamilyPortrait] Generating: members=%d, relationships=%d, session=%s",
		len(req.Members), len(req.Relationships), req.SessionID)

	// 1. 사진 업로드
	s.notifier.Notify(req.SessionID, progress.Event{Type: progress.EventUploadStarted})
	photos, failedUploads := s.UploadPhotos(ctx, req.Members)

	// 2. pass 계획
	plan := PlanPasses(photos, req.Relationships)
	if len(plan.Overflow) > 0 {
		log.Printf("⚠️  [Planner] %d photo(s) exceed the 2-pass limit and will not be included: %s",
			len(plan.Overflow), strings.Join(names(plan.Overflow), ", "))
	}
	log.Printf("🗂️  [Planner] %d photo(s) → %d pass batch(es)", len(photos), len(plan.Batches))
	s.notifier.Notify(req.SessionID, progress.Event{
		Type: progress.EventPlanReady,
		Data: map[string]interface{}{
			"batches":       len(plan.Batches),
			"notIncluded":   names(plan.Overflow),
			"failedUploads": failedUploads,
		},
	})

	// 3. pass 실행
	orchestrator := NewOrchestrator(s.tasks, s.photos, s.notifier)
	result, err := orchestrator.Run(ctx, OrchestrateInput{
		Members:       req.Members,
		Relationships: req.Relationships,
		ThemePrompt:   req.ThemePrompt,
		Options:       s.options(req),
		Plan:          plan,
		SessionID:     req.SessionID,
	})
	if err != nil {
		return nil, err
	}
	result.PhotoUsage.FailedUploads = failedUploads

	// 4. clean 사본 보관 + 워터마크 preview
	s.notifier.Notify(req.SessionID, progress.Event{Type: progress.EventSecuring})
	secured, err := s.securer.Secure(ctx, result.FinalLocator)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [FamilyPortrait] Completed: passes=%d, asset=%s, warnings=%d",
		result.PassesCompleted, secured.AssetID, len(secured.Warnings))

	return &GeneratedArtifact{
		PreviewURL:      secured.PreviewLocator,
		AssetID:         secured.AssetID,
		PassesCompleted: result.PassesCompleted,
		PhotoUsage:      result.PhotoUsage,
		Warnings:        secured.Warnings,
	}, nil
}

// ResolveAsset - asset id → clean locator
// 호출자가 unlock을 확인한 뒤에만 호출할 것
func (s *Service) ResolveAsset(ctx context.Context, assetID string) (string, error) {
	return s.securer.Resolve(ctx, assetID)
}
