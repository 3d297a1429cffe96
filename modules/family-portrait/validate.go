package familyportrait

import (
	"strings"

	"family-portrait-server/modules/common/apperr"
)

const (
	MinMembers       = 2
	MinRelationships = 1
	maxThemeLength   = 2000
)

var validAspectRatios = map[string]bool{
	"1:1": true, "2:3": true, "3:2": true, "3:4": true, "4:3": true,
	"4:5": true, "5:4": true, "9:16": true, "16:9": true, "21:9": true,
}

var validResolutions = map[string]bool{"1K": true, "2K": true, "4K": true}

var validOutputFormats = map[string]bool{"png": true, "jpg": true}

func invalid(format string, args ...interface{}) error {
	return apperr.Newf(apperr.KindValidation, "validate request", format, args...)
}

// ValidateRequest - generate 요청 검증 (ThemePrompt는 trim 해서 되돌려 놓는다)
func ValidateRequest(req *GenerateRequest) error {
	if len(req.Members) < MinMembers {
		return invalid("at least %d members are required (got %d)", MinMembers, len(req.Members))
	}
	if len(req.Relationships) < MinRelationships {
		return invalid("at least %d relationship is required", MinRelationships)
	}

	known := make(map[string]bool, len(req.Members))
	for i, m := range req.Members {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return invalid("member %d has no id", i)
		}
		if known[id] {
			return invalid("duplicate member id: %s", id)
		}
		if strings.TrimSpace(m.Name) == "" {
			return invalid("member %s has no name", id)
		}
		known[id] = true
	}

	for i, rel := range req.Relationships {
		if !rel.Kind.Valid() {
			return invalid("relationship %d has invalid kind: %q", i, rel.Kind)
		}
		if !known[rel.FromID] || !known[rel.ToID] {
			return invalid("relationship %d references unknown member (%s → %s)", i, rel.FromID, rel.ToID)
		}
		if rel.FromID == rel.ToID {
			return invalid("relationship %d links %s to itself", i, rel.FromID)
		}
	}

	req.ThemePrompt = strings.TrimSpace(req.ThemePrompt)
	if len(req.ThemePrompt) > maxThemeLength {
		return invalid("theme prompt too long (max %d characters)", maxThemeLength)
	}

	if req.AspectRatio != "" && !validAspectRatios[req.AspectRatio] {
		return invalid("invalid aspect ratio: %s", req.AspectRatio)
	}
	if req.Resolution != "" && !validResolutions[strings.ToUpper(req.Resolution)] {
		return invalid("invalid resolution: %s", req.Resolution)
	}
	if req.OutputFormat != "" && !validOutputFormats[strings.ToLower(req.OutputFormat)] {
		return invalid("invalid output format: %s", req.OutputFormat)
	}
	return nil
}
