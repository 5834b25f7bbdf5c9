package text

// Clamp bounds s to at most max runes. When the input exceeds the bound the
// result ends in "..." and still fits within max.
func Clamp(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Head returns the first max runes of s with no ellipsis marker.
func Head(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
