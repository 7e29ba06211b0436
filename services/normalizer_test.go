package services

import (
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Underscore separated",
			input:    "red_car",
			expected: "Red Car",
		},
		{
			name:     "Already canonical",
			input:    "Red Car",
			expected: "Red Car",
		},
		{
			name:     "All caps with underscore",
			input:    "RED_CAR",
			expected: "Red Car",
		},
		{
			name:     "Mixed case single word",
			input:    "ouTDoor",
			expected: "Outdoor",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  golden retriever  ",
			expected: "Golden Retriever",
		},
		{
			name:     "Multiple underscores",
			input:    "black_and_white_photo",
			expected: "Black And White Photo",
		},
		{
			name:     "Leading digits",
			input:    "35mm_film",
			expected: "35Mm Film",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only separators",
			input:    "_ _",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTag(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// 规范化必须幂等：规范形式再过一遍不会变
func TestNormalizeTagIdempotent(t *testing.T) {
	inputs := []string{"red_car", "Red Car", "RED_CAR", "golden retriever", "35mm_film"}
	for _, input := range inputs {
		once := NormalizeTag(input)
		twice := NormalizeTag(once)
		if once != twice {
			t.Errorf("NormalizeTag not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "Dedup after normalization",
			input:    []string{"red_car", "Red Car", "RED_CAR"},
			expected: []string{"Red Car"},
		},
		{
			name:     "Preserves first-seen order",
			input:    []string{"dog", "cat", "Dog"},
			expected: []string{"Dog", "Cat"},
		},
		{
			name:     "Drops empties",
			input:    []string{"", "  ", "cat"},
			expected: []string{"Cat"},
		},
		{
			name:     "Empty input",
			input:    []string{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTags(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
