package utils

import "strings"

// ContainsAny checks if the text contains any of the given keywords
func ContainsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// WordSet splits text on whitespace into a lower-cased set of words
func WordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

// JaccardSimilarity computes |intersection| / |union| of the word sets of
// two texts. An empty union yields 0, not NaN.
func JaccardSimilarity(text1, text2 string) float64 {
	set1 := WordSet(text1)
	set2 := WordSet(text2)

	intersection := 0
	for word := range set1 {
		if _, ok := set2[word]; ok {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
