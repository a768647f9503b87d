// Package chunker splits input text into bounded word-count segments so each
// segment can be submitted to the inference engine independently.
package chunker

import "strings"

// Split tokenizes text on whitespace and groups consecutive runs of at most
// size words, rejoined with single spaces. The final segment may be shorter.
// Whitespace-only input produces no segments.
func Split(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{strings.Join(words, " ")}
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
