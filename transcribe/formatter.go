package transcribe

import (
	"strings"
	"unicode"
)

const sentenceEnders = ".!?"

// Format normalizes raw recognizer output: whitespace runs collapse to single
// spaces, the first letter is capitalized, and a final period is added when
// the text does not already end in sentence punctuation. Whitespace-only
// input formats to the empty string.
func Format(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	runes := []rune(strings.Join(fields, " "))
	runes[0] = unicode.ToUpper(runes[0])
	if !strings.ContainsRune(sentenceEnders, runes[len(runes)-1]) {
		return string(runes) + "."
	}
	return string(runes)
}

// Summarize bounds text to maxLen runes for preview display. Text within the
// bound passes through unchanged. Otherwise the window is cut at the last
// sentence ender when one falls past 70% of the window, else hard-truncated
// with a trailing ellipsis. The result never exceeds maxLen+3 runes.
func Summarize(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen < 0 {
		maxLen = 0
	}
	window := runes[:maxLen]
	cut := -1
	for i := len(window) - 1; i >= 0; i-- {
		if strings.ContainsRune(sentenceEnders, window[i]) {
			cut = i
			break
		}
	}
	if cut >= 0 && float64(cut) > float64(maxLen)*0.7 {
		return string(window[:cut+1])
	}
	return string(window) + "..."
}
