package discovery

import (
	"strings"
	"unicode"
)

var leadingFiller = []string{
	"can you show me ",
	"show me some ",
	"show me ",
	"find me some ",
	"find me ",
	"find ",
	"give me some ",
	"give me ",
	"i want some ",
	"i want ",
	"i'd like ",
	"some ",
}

var trailingNouns = []string{
	"recipes",
	"recipe",
	"dishes",
	"dish",
	"ideas",
	"meals",
	"options",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "with": true,
	"for": true, "of": true, "to": true, "in": true, "on": true, "me": true,
	"my": true, "i": true, "some": true, "please": true, "want": true,
	"make": true, "can": true, "you": true, "what": true, "how": true,
	"recipe": true, "recipes": true, "dish": true, "dishes": true, "ideas": true,
	"something": true, "show": true, "find": true, "give": true, "is": true,
}

// NormalizeQuery canonicalizes a free-text query into a stable history key.
// "Chicken Recipes", "chicken" and "show me chicken recipes!" all map to "chicken".
func NormalizeQuery(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	q = strings.TrimFunc(q, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	q = strings.Join(strings.Fields(q), " ")

	for _, prefix := range leadingFiller {
		if strings.HasPrefix(q, prefix) && len(q) > len(prefix) {
			q = strings.TrimSpace(q[len(prefix):])
			break
		}
	}

	// Strip generic trailing nouns, but never down to an empty key
	for {
		stripped := false
		for _, suffix := range trailingNouns {
			if q != suffix && strings.HasSuffix(q, " "+suffix) {
				q = strings.TrimSpace(strings.TrimSuffix(q, suffix))
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return q
}

// Keywords splits a query into meaningful lower-case tokens
func Keywords(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})

	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f == "" || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ContainsTerm reports whether text contains term on word boundaries
func ContainsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	text = " " + strings.ToLower(text) + " "
	term = strings.ToLower(term)

	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		if isBoundary(rune(text[start-1])) && (isBoundary(rune(text[end])) || (text[end] == 's' && isBoundary(rune(text[end+1])))) {
			return true
		}
		idx = start + 1
	}
}

func isBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
