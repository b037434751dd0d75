package model

import "strings"

// RequirementKind is the meaning of a requirement status list.
type RequirementKind int

const (
	// RequireComplete means the target must be completed.
	RequireComplete RequirementKind = iota
	// RequireActive means the target must be in progress or already completed.
	RequireActive
	// RequireFailed means the target must have failed.
	RequireFailed
)

func (k RequirementKind) String() string {
	switch k {
	case RequireActive:
		return "active"
	case RequireFailed:
		return "failed"
	default:
		return "complete"
	}
}

// ClassifyStatus maps a requirement status list onto a RequirementKind.
// Keywords are matched case-insensitively. Complete keywords win over active ones,
// active keywords win over failed. An empty list, or one without any known keyword,
// requires completion.
func ClassifyStatus(status []string) RequirementKind {
	var hasComplete, hasActive, hasFailed bool
	for _, raw := range status {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "complete", "completed":
			hasComplete = true
		case "active", "accept", "accepted":
			hasActive = true
		case "failed":
			hasFailed = true
		}
	}
	switch {
	case hasComplete:
		return RequireComplete
	case hasActive:
		return RequireActive
	case hasFailed:
		return RequireFailed
	default:
		return RequireComplete
	}
}

// IsActiveOnly reports whether the status list only asks for the target to be active.
func IsActiveOnly(status []string) bool {
	return ClassifyStatus(status) == RequireActive
}

// IsFailedOnly reports whether the status list only asks for the target to have failed.
func IsFailedOnly(status []string) bool {
	return ClassifyStatus(status) == RequireFailed
}

// RequiresCompletion reports whether a fail-condition status means "target completed".
// Unlike requirement edges, an empty status list here carries no meaning.
func RequiresCompletion(status []string) bool {
	for _, raw := range status {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "complete", "completed":
			return true
		}
	}
	return false
}
