package utils

// Token estimation used to keep AI prompts within a budget.
// 1 token ~= 4 characters; good enough for sizing data samples.

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit naively truncates text to roughly fit within a token limit.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}

// FitLines returns the longest prefix of lines whose combined estimate stays
// within budget. At least one line is kept when lines is non-empty.
func FitLines(lines []string, budget int) []string {
	if len(lines) == 0 {
		return nil
	}
	used := 0
	for i, l := range lines {
		used += CountTokens(l) + 1
		if used > budget && i > 0 {
			return lines[:i]
		}
	}
	return lines
}
