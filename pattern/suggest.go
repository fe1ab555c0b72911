package pattern

import (
	"fmt"
	"strings"
)

// maxSuggestDistance is the largest edit distance still offered as a
// "did you mean" hint.
const maxSuggestDistance = 2

// suggestKeyword returns a hint naming the keyword in candidates closest to
// word, or "" when nothing is close enough. Comparison ignores case.
func suggestKeyword(word string, candidates ...TokenType) string {
	if word == "" || len(candidates) == 0 {
		return ""
	}
	upper := strings.ToUpper(word)

	best := ""
	bestDist := maxSuggestDistance + 1
	for _, tt := range candidates {
		name := tt.String()
		dist := levenshteinDistance(upper, name)
		if dist < bestDist {
			bestDist = dist
			best = name
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean %s?", best)
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	len1, len2 := len(s1), len(s2)

	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len2]
}
