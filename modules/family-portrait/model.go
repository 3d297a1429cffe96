package familyportrait

import "family-portrait-server/modules/assets"

// RelationshipKind - 관계 종류
type RelationshipKind string

const (
	KindParent  RelationshipKind = "parent"
	KindSpouse  RelationshipKind = "spouse"
	KindSibling RelationshipKind = "sibling"
	KindChild   RelationshipKind = "child"
)

// Valid - 허용된 관계 종류인지 확인
func (k RelationshipKind) Valid() bool {
	switch k {
	case KindParent, KindSpouse, KindSibling, KindChild:
		return true
	}
	return false
}

// Member - 가족 구성원
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"` // 원격 URL 또는 data: URI
}

// Relationship - FromID가 ToID의 Kind (parent면 FromID가 ToID의 부모)
type Relationship struct {
	FromID string           `json:"fromId"`
	ToID   string           `json:"toId"`
	Kind   RelationshipKind `json:"kind"`
}

// PhotoReference - 업로드 대상/완료 사진
type PhotoReference struct {
	PersonID      string `json:"personId"`
	PersonName    string `json:"personName"`
	SourceLocator string `json:"sourceLocator"`
	Uploaded      bool   `json:"uploaded"`
}

// Batch - 1회 pass에 입력되는 사진 묶음
type Batch []PhotoReference

// PassPlan - Planner 결과 (Batch 최대 2개 + 포함되지 못한 사진)
type PassPlan struct {
	Batches  []Batch
	Overflow []PhotoReference
}

// 작업 상태 (앞으로만 진행)
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

func (s TaskState) rank() int {
	switch s {
	case TaskQueued:
		return 0
	case TaskRunning:
		return 1
	case TaskSucceeded, TaskFailed:
		return 2
	}
	return -1
}

// Terminal - 종료 상태 여부
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// GenerationTask - provider 호출 1회
type GenerationTask struct {
	TaskID         string    `json:"taskId"`
	State          TaskState `json:"state"`
	ResultLocators []string  `json:"resultLocators,omitempty"`
	FailureReason  string    `json:"failureReason,omitempty"`
}

// PhotoUsageReport - 어떤 사람이 어느 pass에 들어갔는지
type PhotoUsageReport struct {
	Pass1         []string `json:"pass1"`
	Pass2         []string `json:"pass2"`
	NotIncluded   []string `json:"notIncluded"`
	FailedUploads []string `json:"failedUploads"`
}

// GenerateOptions - provider로 전달되는 렌더링 옵션
type GenerateOptions struct {
	AspectRatio  string
	Resolution   string
	OutputFormat string
}

// GenerateRequest - POST /api/family-portrait/generate
type GenerateRequest struct {
	Members       []Member       `json:"members"`
	Relationships []Relationship `json:"relationships"`
	ThemePrompt   string         `json:"themePrompt"`
	AspectRatio   string         `json:"aspectRatio,omitempty"`
	Resolution    string         `json:"resolution,omitempty"`
	OutputFormat  string         `json:"outputFormat,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
}

// GeneratedArtifact - 호출자에게 돌려주는 유일한 결과 (clean locator 없음)
type GeneratedArtifact struct {
	PreviewURL      string           `json:"previewUrl"`
	AssetID         string           `json:"assetId"`
	PassesCompleted int              `json:"passesCompleted"`
	PhotoUsage      PhotoUsageReport `json:"photoUsage"`
	Warnings        []assets.Warning `json:"warnings,omitempty"`
}

// GenerateResponse - generate API 응답
type GenerateResponse struct {
	Success      bool               `json:"success"`
	Artifact     *GeneratedArtifact `json:"artifact,omitempty"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
}

// AssetResponse - GET /api/family-portrait/assets/{assetId} 응답
type AssetResponse struct {
	Success      bool   `json:"success"`
	AssetID      string `json:"assetId,omitempty"`
	CleanURL     string `json:"cleanUrl,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
