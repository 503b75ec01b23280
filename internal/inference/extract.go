// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	spaceRe    = regexp.MustCompile(`\s+`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*`)
)

// Extractive is a local summarizer that returns the leading sentences of
// its input.
type Extractive struct{}

// Summarize returns the first sentences of prompt that fit in maxTokens.
func (Extractive) Summarize(_ context.Context, prompt string, maxTokens int) (string, error) {
	return Extract(prompt, maxTokens*4), nil
}

// Extract strips markup and returns whole leading sentences of text up to
// maxChars runes. When the first sentence alone is too long it is cut at a
// word boundary, or at a rune boundary for text without spaces. maxChars
// <= 0 means no limit.
func Extract(text string, maxChars int) string {
	clean := html.UnescapeString(tagRe.ReplaceAllString(text, " "))
	clean = strings.TrimSpace(spaceRe.ReplaceAllString(clean, " "))
	if clean == "" {
		return ""
	}
	if maxChars <= 0 || utf8.RuneCountInString(clean) <= maxChars {
		return clean
	}

	var b strings.Builder
	n := 0
	for _, s := range sentenceRe.FindAllString(clean, -1) {
		s = strings.TrimSpace(s)
		sn := utf8.RuneCountInString(s)
		if n > 0 && n+1+sn > maxChars {
			break
		}
		if n == 0 && sn > maxChars {
			break
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(s)
		n += sn
	}
	if n > 0 {
		return b.String()
	}

	cut := string([]rune(clean)[:maxChars])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}
