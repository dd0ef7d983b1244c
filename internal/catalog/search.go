package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pickup/internal/domain"
)

// Normalize folds case and strips diacritics so that "Äpfel" matches
// "apfel". Strings that fail to transform are case folded only.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.TrimSpace(stripped))
}

// Filter returns the items matching every whitespace separated token of
// query against name, category or search terms. An empty query matches
// everything. The input is never modified.
func Filter(items []domain.Item, query string) []domain.Item {
	tokens := strings.Fields(Normalize(query))
	if len(tokens) == 0 {
		return items
	}

	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if matches(it, tokens) {
			out = append(out, it)
		}
	}
	return out
}

func matches(it domain.Item, tokens []string) bool {
	fields := make([]string, 0, 2+len(it.SearchTerms))
	fields = append(fields, Normalize(it.Name), Normalize(it.Category))
	for _, term := range it.SearchTerms {
		fields = append(fields, Normalize(term))
	}

	for _, tok := range tokens {
		found := false
		for _, f := range fields {
			if strings.Contains(f, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
