package kieai

// CreateTaskRequest - createTask API 요청
type CreateTaskRequest struct {
	Model string    `json:"model"`
	Input TaskInput `json:"input"`
}

// TaskInput - 렌더링 입력
type TaskInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input,omitempty"` // 참조 이미지 URL (최대 8개)
	AspectRatio  string   `json:"aspect_ratio,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`    // 1K, 2K, 4K
	OutputFormat string   `json:"output_format,omitempty"` // png, jpg
}

// CreateTaskResponse - createTask API 응답
type CreateTaskResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// RecordInfoResponse - recordInfo (작업 상태 조회) API 응답
type RecordInfoResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID     string `json:"taskId"`
		Model      string `json:"model"`
		State      string `json:"state"`      // waiting, queuing, generating, success, fail
		ResultJSON string `json:"resultJson"` // {"resultUrls": [...]} 문자열
		FailCode   string `json:"failCode"`
		FailMsg    string `json:"failMsg"`
		CreateTime int64  `json:"createTime"`
	} `json:"data"`
}

// ResultPayload - resultJson 내부 구조
type ResultPayload struct {
	ResultURLs []string `json:"resultUrls"`
}
