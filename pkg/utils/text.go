package utils

import (
	"math"
	"strings"
	"unicode"
)

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string, caseSensitive bool) int {
	if !caseSensitive {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Symbols returns the share of control and non-ASCII runes in line, rounded
// up to two decimals.
func Symbols(line string) float64 {
	return ratio(line, func(r rune) bool {
		return r <= 30 || r >= 127 || r == unicode.ReplacementChar
	})
}

// Uppercase returns the share of ASCII capital letters in line, rounded up to
// two decimals.
func Uppercase(line string) float64 {
	return ratio(line, func(r rune) bool {
		return r >= 'A' && r <= 'Z'
	})
}

func ratio(line string, match func(rune) bool) float64 {
	var total, n int
	for _, r := range line {
		total++
		if match(r) {
			n++
		}
	}
	if total == 0 {
		return 0
	}

	return math.Ceil(float64(n)/float64(total)*100) / 100
}
