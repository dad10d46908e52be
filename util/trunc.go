package util

// TruncateRightWithSuffix keeps the first n runes of text and appends suffix only if text was truncated.
func TruncateRightWithSuffix(text string, n int, suffix string) string {
	if n <= 0 {
		return suffix
	}

	count := 0
	for i := range text {
		if count == n {
			return text[:i] + suffix
		}
		count++
	}

	return text
}
