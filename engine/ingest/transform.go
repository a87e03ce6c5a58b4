package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 4000
	// DefaultChunkOverlap is the number of characters shared by consecutive windows.
	DefaultChunkOverlap = 300
	// SummaryWidth caps the summary sent alongside each chunk.
	SummaryWidth = 280
	// summaryPlaceholder marks a shortened summary.
	summaryPlaceholder = "…"
)

// ErrInvalidChunkWindow is returned when the window cannot advance.
var ErrInvalidChunkWindow = errors.New("invalid chunk window")

// ValidateWindow checks that a (size, overlap) pair makes forward progress.
func ValidateWindow(size, overlap int) error {
	if size <= 0 || overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkWindow, size, overlap)
	}
	return nil
}

// ChunkText splits text into windows of at most size characters, each
// starting overlap characters before the end of the previous one. Surrounding
// whitespace is trimmed first; blank input yields no chunks.
func ChunkText(text string, size, overlap int) ([]string, error) {
	if err := ValidateWindow(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return []string{}, nil
	}

	chunks := make([]string, 0, len(runes)/(size-overlap)+1)
	for cursor := 0; ; {
		end := min(cursor+size, len(runes))
		chunks = append(chunks, string(runes[cursor:end]))
		if end == len(runes) {
			break
		}
		cursor = end - overlap
	}
	return chunks, nil
}

// attribution is the header prepended to a scraped body before chunking.
func attribution(url string) string {
	return "**Source:** " + url + "\n\n"
}

// summarize collapses whitespace runs and shortens the result to width
// characters on a word boundary, ending with an ellipsis when shortened.
// A single word longer than the budget is cut mid-word.
func summarize(text string, width int) string {
	words := strings.Fields(text)
	collapsed := strings.Join(words, " ")
	if utf8.RuneCountInString(collapsed) <= width {
		return collapsed
	}

	budget := width - utf8.RuneCountInString(summaryPlaceholder)
	var b strings.Builder
	n := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+wl > budget {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		n += sep + wl
	}
	if n == 0 {
		return string([]rune(collapsed)[:budget]) + summaryPlaceholder
	}
	return b.String() + summaryPlaceholder
}
