package nanobanana

import (
	"context"
	"sync"
	"time"

	"google.golang.org/genai"
)

// contentGenerator - genai.Models 중 사용하는 부분
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Fetcher - 참조 이미지 locator → 바이너리 (transfer.Client)
type Fetcher interface {
	FetchBytes(ctx context.Context, locator string) ([]byte, error)
}

// task - 진행 중인 Gemini 호출 1건
type task struct {
	mu            sync.Mutex
	state         string
	resultURIs    []string
	failureReason string
	createdAt     time.Time
}

func (t *task) finish(state string, results []string, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.resultURIs = results
	t.failureReason = reason
}
