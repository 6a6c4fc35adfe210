package evaluate

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxEditDistance is the largest Levenshtein distance the tolerant matcher accepts.
	MaxEditDistance = 2
	// MinStrictLength is the shortest normalized guess the strict matcher accepts.
	MinStrictLength = 3
)

// Matcher compares a guess against the expected title.
type Matcher func(input, target string) bool

// Tolerant accepts equal titles, containment in either direction, or a
// small edit distance. An input that normalizes to nothing never matches.
func Tolerant(input, target string) bool {
	a, b := Normalize(input), Normalize(target)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return Levenshtein(a, b) <= MaxEditDistance
}

// Strict requires an exact normalized match of at least MinStrictLength runes.
func Strict(input, target string) bool {
	a := Normalize(input)
	if utf8.RuneCountInString(a) < MinStrictLength {
		return false
	}
	return a == Normalize(target)
}

// Levenshtein returns the unit-cost edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}

// Suggest returns up to limit titles whose normalized form contains the
// normalized input, keeping the order of titles.
func Suggest(titles []string, input string, limit int) []string {
	needle := Normalize(input)
	if strings.TrimSpace(input) == "" || limit <= 0 {
		return nil
	}
	out := make([]string, 0, limit)
	for _, title := range titles {
		if strings.Contains(Normalize(title), needle) {
			out = append(out, title)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
