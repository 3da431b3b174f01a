package phash

import (
	"math"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "Typical image path",
			uri:      "/images/potholes/main-road-123.jpg",
			expected: "ZXMvbWFpbi1yb2Fk",
		},
		{
			name:     "Short path keeps whatever survives filtering",
			uri:      "short.jpg",
			expected: "c2hvcnQuanBn",
		},
		{
			name:     "Empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.uri)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if len(got) > 16 {
				t.Errorf("Expected hash capped at 16 characters, got %d", len(got))
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	uri := "/images/potholes/main-road-123.jpg"

	first := Generate(uri)
	second := Generate(uri)

	if first != second {
		t.Errorf("Expected identical hashes for same URI, got %q and %q", first, second)
	}
	if len(first) != 16 {
		t.Errorf("Expected 16-character hash, got %d", len(first))
	}
}

func TestGenerate_SuffixOnly(t *testing.T) {
	// Only the trailing 20 characters participate
	a := Generate("/uploads/2024/03/streetlight-park-ave.jpg")
	b := Generate("/archive/99/streetlight-park-ave.jpg")

	if a != b {
		t.Errorf("Expected equal hashes for shared 20-char suffix, got %q and %q", a, b)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		h1        string
		h2        string
		expected  float64
		tolerance float64
	}{
		{"Identical hashes", "ZXMvbWFpbi1yb2Fk", "ZXMvbWFpbi1yb2Fk", 1.0, 0},
		{"Completely different", "aaaa", "bbbb", 0, 0},
		{"Half matching", "aabb", "aacc", 0.5, 0},
		{"Length mismatch penalized", "aaaa", "aaaaaaaa", 0.5, 0},
		{"One empty", "", "abcd", 0, 0},
		{"Both empty", "", "", 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.h1, tt.h2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("Expected %.3f, got %.3f", tt.expected, got)
			}
			if got < 0 || got > 1 {
				t.Errorf("Expected similarity in [0,1], got %.3f", got)
			}
		})
	}
}

func TestCompare_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"aabb", "aacc"},
		{"aaaa", "aaaaaaaa"},
		{Generate("/a/b/c.jpg"), Generate("/x/y/z.jpg")},
	}

	for _, p := range pairs {
		if Compare(p[0], p[1]) != Compare(p[1], p[0]) {
			t.Errorf("Expected symmetric comparison for %q and %q", p[0], p[1])
		}
	}
}

func TestIsDuplicateImage(t *testing.T) {
	tests := []struct {
		name      string
		h1        string
		h2        string
		threshold float64
		expected  bool
	}{
		{"Identical above default threshold", "abcdefgh", "abcdefgh", DefaultThreshold, true},
		{"Mostly matching above threshold", "abcdefgh", "abcdefgx", 0.8, true},
		{"Half matching below threshold", "aabb", "aacc", 0.8, false},
		{"Low threshold accepts weak match", "aabb", "aacc", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateImage(tt.h1, tt.h2, tt.threshold); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
