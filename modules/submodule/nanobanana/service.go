package nanobanana

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"family-portrait-server/modules/common/provider"
	"family-portrait-server/modules/common/utils"
)

const (
	// generateTimeout - Gemini 호출 1건 제한 시간
	generateTimeout = 4 * time.Minute
	// taskRetention - 끝난 task 결과 보관 시간
	taskRetention = time.Hour
)

// Service - Gemini 이미지 모델을 submit/poll provider로 노출
// Gemini 호출은 동기식이므로 Submit이 백그라운드 호출을 시작하고 Poll이 결과를 읽는다
type Service struct {
	models  contentGenerator
	model   string
	fetcher Fetcher
	tasks   sync.Map // taskID → *task
}

// NewService - apiKey가 비어 있으면 Configured()가 false인 Service 반환
func NewService(ctx context.Context, apiKey, model string, fetcher Fetcher) (*Service, error) {
	s := &Service{model: model, fetcher: fetcher}
	if apiKey == "" {
		log.Println("⚠️ [Nanobanana] GEMINI_API_KEY not configured")
		return s, nil
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	s.models = genaiClient.Models

	log.Printf("✅ [Nanobanana] Service initialized (model: %s)", model)
	return s, nil
}

func (s *Service) Name() string {
	return "gemini:" + s.model
}

func (s *Service) Configured() bool {
	return s.models != nil
}

// Submit - 참조 이미지를 내려받고 Gemini 호출을 백그라운드로 시작
func (s *Service) Submit(ctx context.Context, req provider.SubmitRequest) (string, error) {
	if !s.Configured() {
		return "", provider.ErrNotConfigured
	}
	if len(req.ImageInputs) > provider.MaxImageInputs {
		return "", fmt.Errorf("too many image inputs: %d (max %d)", len(req.ImageInputs), provider.MaxImageInputs)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for i, locator := range req.ImageInputs {
		data, err := s.fetcher.FetchBytes(ctx, locator)
		if err != nil {
			return "", fmt.Errorf("failed to load input image %d: %w", i+1, err)
		}
		log.Printf("📷 [Nanobanana] Adding input image %d: %d bytes", i+1, len(data))
		parts = append(parts, genai.NewPartFromBytes(data, utils.DetectImageMime(data)))
	}

	s.pruneFinished(time.Now())

	taskID := uuid.New().String()
	t := &task{state: provider.StateQueuing, createdAt: time.Now()}
	s.tasks.Store(taskID, t)

	// 요청이 끝나도 호출은 계속되어야 하므로 cancel은 끊고 자체 제한 시간만 둔다
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
	go func() {
		defer cancel()
		s.run(runCtx, taskID, t, parts, req.AspectRatio)
	}()

	log.Printf("🚀 [Nanobanana] Task %s submitted (inputs: %d)", taskID, len(req.ImageInputs))
	return taskID, nil
}

func (s *Service) run(ctx context.Context, taskID string, t *task, parts []*genai.Part, aspectRatio string) {
	t.mu.Lock()
	t.state = provider.StateGenerating
	t.mu.Unlock()

	config := &genai.GenerateContentConfig{Temperature: floatPtr(0.7)}
	if aspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	result, err := s.models.GenerateContent(ctx, s.model, []*genai.Content{{Parts: parts}}, config)
	if err != nil {
		log.Printf("❌ [Nanobanana] Task %s: Gemini API error: %v", taskID, err)
		t.finish(provider.StateFail, nil, fmt.Sprintf("Gemini API error: %v", err))
		return
	}

	var images []string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				images = append(images, utils.EncodeDataURI(part.InlineData.Data))
			}
		}
	}

	if len(images) == 0 {
		log.Printf("⚠️ [Nanobanana] Task %s: no image in response", taskID)
		t.finish(provider.StateFail, nil, "no image generated from Gemini")
		return
	}

	log.Printf("✅ [Nanobanana] Task %s: %d image(s) generated", taskID, len(images))
	t.finish(provider.StateSuccess, images, "")
}

// Poll - 백그라운드 호출 상태 조회
func (s *Service) Poll(ctx context.Context, taskID string) (*provider.Status, error) {
	value, ok := s.tasks.Load(taskID)
	if !ok {
		return nil, fmt.Errorf("unknown task: %s", taskID)
	}
	t := value.(*task)

	t.mu.Lock()
	defer t.mu.Unlock()
	return &provider.Status{
		State:          t.state,
		ResultLocators: append([]string(nil), t.resultURIs...),
		FailureReason:  t.failureReason,
	}, nil
}

// pruneFinished - 보관 시간이 지난 task 제거
func (s *Service) pruneFinished(now time.Time) {
	s.tasks.Range(func(key, value interface{}) bool {
		if now.Sub(value.(*task).createdAt) > taskRetention {
			s.tasks.Delete(key)
		}
		return true
	})
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
