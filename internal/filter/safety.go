// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Classifier decides whether an item must be rejected on content grounds.
// Implementations may be stricter than the default keyword classifier;
// false positives are acceptable, false negatives are not.
type Classifier interface {
	IsUnsafe(d types.ItemDetail) bool
}

// Explainer is optionally implemented by classifiers that can name the
// rule an item tripped.
type Explainer interface {
	Explain(d types.ItemDetail) string
}

// KeywordClassifier rejects items by age gate, content descriptor ids, or
// blocklisted keywords in the display name and the free-text descriptor
// fields.
type KeywordClassifier struct {
	AdultAge      int
	DescriptorIDs []int
	Keywords      []string
}

// NewKeywordClassifier builds the default classifier from configuration.
func NewKeywordClassifier(cfg types.FilterConfig) *KeywordClassifier {
	return &KeywordClassifier{
		AdultAge:      cfg.AdultAge,
		DescriptorIDs: cfg.BlockedDescriptorIDs,
		Keywords:      cfg.BlockedKeywords,
	}
}

// IsUnsafe reports whether any rule matches.
func (k *KeywordClassifier) IsUnsafe(d types.ItemDetail) bool {
	return k.Explain(d) != ""
}

// Explain returns the first matching rule, or "" when the item is clean.
func (k *KeywordClassifier) Explain(d types.ItemDetail) string {
	if k.AdultAge > 0 && int(d.RequiredAge) >= k.AdultAge {
		return fmt.Sprintf("required age %d", d.RequiredAge)
	}
	for _, id := range d.ContentDescriptors.IDs {
		if slices.Contains(k.DescriptorIDs, id) {
			return fmt.Sprintf("content descriptor %d", id)
		}
	}
	haystack := strings.Join([]string{d.Name, d.ContentDescriptors.Notes, d.AdultContent}, "\n")
	if kw := ContainsKeyword(haystack, k.Keywords); kw != "" {
		return fmt.Sprintf("keyword %q", kw)
	}
	return ""
}

// ContainsKeyword returns the first keyword that appears (case-insensitive)
// anywhere in text, or "".
func ContainsKeyword(text string, keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}
