// Package phash provides a stand-in image fingerprint for media dedupe.
// It is deliberately not a perceptual algorithm: the fingerprint is derived
// from the resource identifier alone so that identical uploads compare equal
// without ever decoding image bytes.
package phash

import "encoding/base64"

// DefaultThreshold is the similarity above which two images count as duplicates
const DefaultThreshold = 0.8

const hashLength = 16

// Generate derives a deterministic pseudo-fingerprint from the trailing
// 20 characters of the resource identifier: base64-encoded, filtered to
// alphanumerics, capped at 16 characters. Same URI suffix, same hash.
func Generate(uri string) string {
	suffix := uri
	if len(suffix) > 20 {
		suffix = suffix[len(suffix)-20:]
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(suffix))

	out := make([]byte, 0, hashLength)
	for i := 0; i < len(encoded) && len(out) < hashLength; i++ {
		ch := encoded[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			out = append(out, ch)
		}
	}
	return string(out)
}

// Compare returns 1.0 for identical hashes, otherwise the fraction of
// position-wise matching characters over the longer hash's length.
// Positions past the shorter hash count as mismatches. Range [0,1].
func Compare(h1, h2 string) float64 {
	if h1 == h2 {
		return 1.0
	}

	minLen := len(h1)
	if len(h2) < minLen {
		minLen = len(h2)
	}
	maxLen := len(h1)
	if len(h2) > maxLen {
		maxLen = len(h2)
	}

	matches := 0
	for i := 0; i < minLen; i++ {
		if h1[i] == h2[i] {
			matches++
		}
	}

	return float64(matches) / float64(maxLen)
}

// IsDuplicateImage reports whether two hashes are similar enough to be
// the same image
func IsDuplicateImage(h1, h2 string, threshold float64) bool {
	return Compare(h1, h2) >= threshold
}
