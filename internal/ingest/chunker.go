package ingest

import (
	"regexp"
	"strings"
)

// Sentence boundaries: terminal punctuation followed by whitespace.
// Abbreviation handling is deliberately naive; a split mid-abbreviation
// costs a slightly short chunk, nothing more.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences breaks text into sentences, collapsing internal
// whitespace. Empty input yields nil.
func SplitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	marked := sentenceEnd.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// ChunkText groups sentences into chunks of at most size characters.
// Consecutive chunks share trailing sentences up to overlap characters
// so retrieval hits keep their surrounding context. A single sentence
// longer than size becomes its own oversized chunk rather than being
// cut mid-sentence.
func ChunkText(text string, size, overlap int) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	appendChunk := func() {
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences within the
		// overlap budget.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			add := len(current[i])
			if carryLen > 0 {
				add++
			}
			if carryLen+add > overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += add
		}
		// A full-chunk carry would never advance.
		if len(carry) == len(current) {
			carry = nil
			carryLen = 0
		}
		current = carry
		currentLen = carryLen
	}

	for _, sentence := range sentences {
		add := len(sentence)
		if currentLen > 0 {
			add++
		}
		if currentLen > 0 && currentLen+add > size {
			appendChunk()
			add = len(sentence)
			if currentLen > 0 {
				add++
			}
		}
		current = append(current, sentence)
		currentLen += add
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
