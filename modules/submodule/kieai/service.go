package kieai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"family-portrait-server/modules/common/provider"
)

// Service - Kie.ai jobs API provider
type Service struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewService - Service 생성 (apiKey가 비어 있어도 생성되며 Configured()가 false)
func NewService(apiKey, apiURL, model string) *Service {
	if apiKey == "" {
		log.Println("⚠️ [Kie] KIE_API_KEY not configured")
	}

	return &Service{
		apiKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
		model:  model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *Service) Name() string {
	return "kie:" + s.model
}

func (s *Service) Configured() bool {
	return s.apiKey != "" && s.apiURL != ""
}

// Submit - 렌더링 작업 생성
func (s *Service) Submit(ctx context.Context, req provider.SubmitRequest) (string, error) {
	if !s.Configured() {
		return "", provider.ErrNotConfigured
	}
	if len(req.ImageInputs) > provider.MaxImageInputs {
		return "", fmt.Errorf("too many image inputs: %d (max %d)", len(req.ImageInputs), provider.MaxImageInputs)
	}

	reqData := CreateTaskRequest{
		Model: s.model,
		Input: TaskInput{
			Prompt:       req.Prompt,
			ImageInput:   req.ImageInputs,
			AspectRatio:  req.AspectRatio,
			Resolution:   req.Resolution,
			OutputFormat: req.OutputFormat,
		},
	}

	reqBody, err := json.Marshal(reqData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/createTask", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	log.Printf("🚀 [Kie] Creating task (model: %s, inputs: %d)", s.model, len(req.ImageInputs))

	body, status, err := s.do(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", status, string(body))
	}

	var result CreateTaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Code != http.StatusOK {
		return "", fmt.Errorf("API error code %d: %s", result.Code, result.Msg)
	}
	if result.Data.TaskID == "" {
		return "", fmt.Errorf("API returned no taskId")
	}

	log.Printf("✅ [Kie] Task created: %s", result.Data.TaskID)
	return result.Data.TaskID, nil
}

// Poll - 작업 상태 조회
func (s *Service) Poll(ctx context.Context, taskID string) (*provider.Status, error) {
	if !s.Configured() {
		return nil, provider.ErrNotConfigured
	}

	statusURL := s.apiURL + "/recordInfo?taskId=" + url.QueryEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	body, status, err := s.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", status, string(body))
	}

	var result RecordInfoResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Code != http.StatusOK {
		return nil, fmt.Errorf("API error code %d: %s", result.Code, result.Msg)
	}

	out := &provider.Status{State: strings.ToLower(result.Data.State)}
	switch out.State {
	case provider.StateSuccess:
		if result.Data.ResultJSON != "" {
			var payload ResultPayload
			if err := json.Unmarshal([]byte(result.Data.ResultJSON), &payload); err != nil {
				return nil, fmt.Errorf("failed to parse resultJson: %w", err)
			}
			out.ResultLocators = payload.ResultURLs
		}
	case provider.StateFail:
		out.FailureReason = result.Data.FailMsg
		if out.FailureReason == "" {
			out.FailureReason = result.Data.FailCode
		}
	}
	return out, nil
}

func (s *Service) do(req *http.Request) ([]byte, int, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
