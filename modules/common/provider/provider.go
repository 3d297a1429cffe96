package provider

import (
	"context"
	"errors"
)

// MaxImageInputs - provider 1회 호출당 참조 이미지 최대 개수
const MaxImageInputs = 8

// provider가 보고하는 원시 상태
const (
	StateWaiting    = "waiting"
	StateQueuing    = "queuing"
	StateGenerating = "generating"
	StateSuccess    = "success"
	StateFail       = "fail"
)

// ErrNotConfigured - provider 연동 키가 설정되지 않음
var ErrNotConfigured = errors.New("generation provider is not configured")

// SubmitRequest - 렌더링 작업 생성 요청
type SubmitRequest struct {
	Prompt       string
	AspectRatio  string
	Resolution   string
	OutputFormat string
	// ImageInputs - 참조 이미지 locator (최대 MaxImageInputs)
	ImageInputs []string
}

// Status - poll 결과
type Status struct {
	State          string
	ResultLocators []string
	FailureReason  string
}

// Provider - 원격 이미지 생성 provider의 submit/poll 계약
// submit 이후 원격 작업을 취소하는 방법은 없다
type Provider interface {
	Name() string
	Configured() bool
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Poll(ctx context.Context, taskID string) (*Status, error)
}
