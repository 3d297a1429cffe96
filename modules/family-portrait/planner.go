package familyportrait

import "family-portrait-server/modules/common/provider"

// MaxInputs - pass 1회당 참조 이미지 최대 개수
const MaxInputs = provider.MaxImageInputs

// MaxPasses - 계획되는 최대 pass 수 (그 이상은 Overflow로 보고)
const MaxPasses = 2

// IsAncestor - 들어오는 parent 관계가 없는 사람
func IsAncestor(personID string, relationships []Relationship) bool {
	for _, rel := range relationships {
		if rel.Kind == KindParent && rel.ToID == personID {
			return false
		}
	}
	return true
}

// OrderAncestorsFirst - 조상 먼저, 그룹 내에서는 입력 순서 유지 (stable partition)
func OrderAncestorsFirst(photos []PhotoReference, relationships []Relationship) []PhotoReference {
	ordered := make([]PhotoReference, 0, len(photos))
	var descendants []PhotoReference
	for _, photo := range photos {
		if IsAncestor(photo.PersonID, relationships) {
			ordered = append(ordered, photo)
		} else {
			descendants = append(descendants, photo)
		}
	}
	return append(ordered, descendants...)
}

// PlanPasses - 업로드된 사진을 pass 단위로 나눈다 (I/O 없음)
// 첫 batch는 MaxInputs, 이후 batch는 이전 pass 결과 1장을 위해 MaxInputs-1
// MaxPasses를 넘는 나머지는 Overflow
func PlanPasses(photos []PhotoReference, relationships []Relationship) PassPlan {
	rest := OrderAncestorsFirst(photos, relationships)

	plan := PassPlan{}
	for len(rest) > 0 && len(plan.Batches) < MaxPasses {
		capacity := MaxInputs
		if len(plan.Batches) > 0 {
			capacity = MaxInputs - 1
		}

		size := min(len(rest), capacity)
		plan.Batches = append(plan.Batches, Batch(rest[:size]))
		rest = rest[size:]
	}
	if len(rest) > 0 {
		plan.Overflow = rest
	}
	return plan
}

// Locators - batch의 사진 locator 목록
func (b Batch) Locators() []string {
	out := make([]string, len(b))
	for i, photo := range b {
		out[i] = photo.SourceLocator
	}
	return out
}

// Names - batch의 이름 목록
func (b Batch) Names() []string {
	return names(b)
}

func names(photos []PhotoReference) []string {
	out := make([]string, len(photos))
	for i, photo := range photos {
		out[i] = photo.PersonName
	}
	return out
}
