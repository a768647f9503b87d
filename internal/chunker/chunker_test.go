package chunker

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	t.Run("RespectsWordBound", func(t *testing.T) {
		text := strings.Repeat("word ", 250)
		chunks := Split(text, 100)

		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks for 250 words at size 100, got %d", len(chunks))
		}
		for i, chunk := range chunks {
			if n := len(strings.Fields(chunk)); n > 100 {
				t.Errorf("chunk %d has %d words, want <= 100", i, n)
			}
		}
	})

	t.Run("ReassemblesNormalizedText", func(t *testing.T) {
		text := "  My   name\tis Jane\nDoe and my email is jane@x.com  "
		chunks := Split(text, 3)

		joined := strings.Join(chunks, " ")
		want := strings.Join(strings.Fields(text), " ")
		if joined != want {
			t.Errorf("reassembled %q, want %q", joined, want)
		}
	})

	t.Run("ChunkCountIsCeiling", func(t *testing.T) {
		cases := []struct {
			words int
			size  int
			want  int
		}{
			{1, 100, 1},
			{100, 100, 1},
			{101, 100, 2},
			{200, 100, 2},
			{7, 3, 3},
		}
		for _, tc := range cases {
			text := strings.TrimSpace(strings.Repeat("w ", tc.words))
			if got := len(Split(text, tc.size)); got != tc.want {
				t.Errorf("%d words at size %d: got %d chunks, want %d", tc.words, tc.size, got, tc.want)
			}
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if chunks := Split("", 100); chunks != nil {
			t.Errorf("expected no chunks for empty input, got %v", chunks)
		}
		if chunks := Split("   \n\t ", 100); chunks != nil {
			t.Errorf("expected no chunks for whitespace input, got %v", chunks)
		}
	})

	t.Run("NonPositiveSize", func(t *testing.T) {
		chunks := Split("a b c", 0)
		if len(chunks) != 1 || chunks[0] != "a b c" {
			t.Errorf("expected single chunk for size 0, got %v", chunks)
		}
	})
}
