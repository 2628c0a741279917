package scapeid

import "strings"

// Normalize canonicalizes scape names and their aliases.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalScapeName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

func aliasCandidates(normalized string) []string {
	candidate := strings.TrimPrefix(normalized, "scape-")
	if candidate == normalized {
		candidate = strings.TrimPrefix(candidate, "scape")
	}
	candidate = strings.Trim(candidate, "-")

	candidates := []string{normalized}
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}
	return candidates
}

func canonicalScapeName(alias string) (string, bool) {
	compact := strings.ReplaceAll(alias, "-", "")
	switch compact {
	case "alternating", "alternation", "ab":
		return "alternating", true
	case "movingbar", "bar", "sweep":
		return "moving-bar", true
	case "noise", "random":
		return "noise", true
	case "sequence", "blocks", "blocksequence":
		return "sequence", true
	default:
		return "", false
	}
}
