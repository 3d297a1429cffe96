package familyportrait

import (
	"fmt"
	"strings"
)

const defaultTheme = "a warm, hand-painted family tree illustration with soft natural light"

// describeFamily - 구성원과 관계를 문장으로 정리
func describeFamily(members []Member, relationships []Relationship) string {
	byID := make(map[string]string, len(members))
	for _, m := range members {
		byID[m.ID] = m.Name
	}

	var sb strings.Builder
	sb.WriteString("FAMILY MEMBERS:\n")
	for _, m := range members {
		sb.WriteString("- " + m.Name + "\n")
	}

	sb.WriteString("\nRELATIONSHIPS:\n")
	for _, rel := range relationships {
		sb.WriteString(fmt.Sprintf("- %s is the %s of %s\n", byID[rel.FromID], rel.Kind, byID[rel.ToID]))
	}
	return sb.String()
}

// BuildPrimaryPrompt - pass 1 프롬프트 (장면 전체를 새로 구성)
func BuildPrimaryPrompt(members []Member, relationships []Relationship, theme string, batch Batch) string {
	if strings.TrimSpace(theme) == "" {
		theme = defaultTheme
	}

	prompt := `[FAMILY TREE ARTWORK]
Create ONE cohesive artwork of a single family arranged as a family tree.
Older generations sit at the roots and trunk, younger generations along the branches.
Every listed member appears exactly once, with the relationships below respected in placement.

` + describeFamily(members, relationships)

	if len(batch) > 0 {
		prompt += fmt.Sprintf(`
REFERENCE PHOTOS: %d image(s), in this order: %s
- Preserve each person's facial features, hair and skin tone from their photo
- Members without a photo are painted in the same style from their description

`, len(batch), strings.Join(batch.Names(), ", "))
	} else {
		prompt += "\nNo reference photos are provided; invent faces consistent with the family.\n\n"
	}

	return prompt + "STYLE / THEME:\n" + theme
}

// BuildContinuationPrompt - pass 2 프롬프트 (이전 결과를 확장, 다시 그리지 않음)
func BuildContinuationPrompt(theme string, batch Batch) string {
	if strings.TrimSpace(theme) == "" {
		theme = defaultTheme
	}

	return fmt.Sprintf(`[EXTEND EXISTING FAMILY TREE ARTWORK]
The FIRST image is an existing family tree artwork. Keep its composition, style, people and background unchanged.
Add exactly these people to the scene, one per following reference photo, in order: %s.
Place them naturally on the existing branches without removing or repainting anyone already present.
Match the lighting, brushwork and palette of the existing artwork.

STYLE / THEME:
%s`, strings.Join(batch.Names(), ", "), theme)
}
