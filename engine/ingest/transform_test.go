package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkText_Cases(t *testing.T) {
	tests := []struct {
		input   string
		size    int
		overlap int
		want    []string
	}{
		{input: "abcdefg", size: 3, overlap: 0, want: []string{"abc", "def", "g"}},
		{input: "abcdefg", size: 3, overlap: 1, want: []string{"abc", "cde", "efg"}},
		{input: "abcdefg", size: 9, overlap: 5, want: []string{"abcdefg"}},
		{input: "  abcdef \n", size: 4, overlap: 2, want: []string{"abcd", "cdef"}},
		{input: "", size: 9, overlap: 5, want: []string{}},
		{input: " \n\t ", size: 9, overlap: 5, want: []string{}},
		{input: "héllo wörld", size: 5, overlap: 1, want: []string{"héllo", "o wör", "rld"}},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			got, err := ChunkText(tt.input, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ChunkText(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for j := range got {
				if got[j] != tt.want[j] {
					t.Fatalf("chunk %d = %q, want %q", j, got[j], tt.want[j])
				}
			}
		})
	}
}

func TestChunkText_InvalidWindow(t *testing.T) {
	for _, w := range [][2]int{{10, 10}, {10, 11}, {0, 0}, {10, -1}} {
		_, err := ChunkText("some text", w[0], w[1])
		if !errors.Is(err, ErrInvalidChunkWindow) {
			t.Errorf("size=%d overlap=%d: expected ErrInvalidChunkWindow, got %v", w[0], w[1], err)
		}
	}
}

func TestChunkText_CoverageAndCount(t *testing.T) {
	text := strings.Repeat("0123456789abcdefghij", 53) // 1060 runes
	windows := [][2]int{{100, 0}, {100, 30}, {64, 63}, {4000, 300}, {7, 3}}

	for _, w := range windows {
		size, overlap := w[0], w[1]
		chunks, err := ChunkText(text, size, overlap)
		if err != nil {
			t.Fatalf("size=%d overlap=%d: %v", size, overlap, err)
		}

		n := len(text)
		want := 1
		if n > size {
			step := size - overlap
			want = (n - overlap + step - 1) / step
		}
		if len(chunks) != want {
			t.Errorf("size=%d overlap=%d: got %d chunks, want %d", size, overlap, len(chunks), want)
		}

		// Rebuild the text by dropping the overlapping prefix of each chunk.
		var b strings.Builder
		for i, c := range chunks {
			if utf8.RuneCountInString(c) > size {
				t.Fatalf("chunk %d longer than window: %d", i, len(c))
			}
			if i == 0 {
				b.WriteString(c)
				continue
			}
			prev := chunks[i-1]
			if !strings.HasPrefix(c, prev[len(prev)-overlap:]) {
				t.Fatalf("size=%d overlap=%d: chunk %d does not overlap previous by %d", size, overlap, i, overlap)
			}
			b.WriteString(c[overlap:])
		}
		if b.String() != text {
			t.Fatalf("size=%d overlap=%d: chunks do not reconstruct the input", size, overlap)
		}
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("word ", 100)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "hello \n\n  world\t!", "hello world !"},
		{"short untouched", "hello world", "hello world"},
		{"word boundary", long, strings.TrimSpace(strings.Repeat("word ", 56)) + "…"},
		{"single long word", strings.Repeat("x", 300), strings.Repeat("x", 279) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarize(tt.in, SummaryWidth)
			if got != tt.want {
				t.Fatalf("summarize() = %q, want %q", got, tt.want)
			}
			if utf8.RuneCountInString(got) > SummaryWidth {
				t.Fatalf("summary too long: %d", utf8.RuneCountInString(got))
			}
		})
	}
}
