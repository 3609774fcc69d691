// Package chunker splits page-tagged document text into bounded,
// page-aligned segments for LLM extraction.
package chunker

import (
	"strings"

	"pcax/internal/domain"
)

// DefaultWordBudget is the approximate number of words per chunk.
const DefaultWordBudget = 3500

// Chunk splits the document into word-budgeted, page-aligned chunks.
// A page is never divided across two chunks, so a single page larger than
// the budget becomes its own chunk. Returns domain.ErrInvalidDocument when
// the document has no pages. maxWords <= 0 falls back to DefaultWordBudget.
func Chunk(doc domain.Document, maxWords int) ([]domain.Chunk, error) {
	if len(doc.Pages) == 0 {
		return nil, domain.ErrInvalidDocument
	}
	if maxWords <= 0 {
		maxWords = DefaultWordBudget
	}

	var chunks []domain.Chunk
	var buf []domain.Page
	words := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		texts := make([]string, len(buf))
		for i, p := range buf {
			texts[i] = p.Text
		}
		chunks = append(chunks, domain.Chunk{
			StartPage: buf[0].PageNum,
			EndPage:   buf[len(buf)-1].PageNum,
			Text:      strings.Join(texts, "\n\n"),
		})
		buf = nil
		words = 0
	}

	for _, p := range doc.Pages {
		wc := wordCount(p.Text)
		if words > 0 && words+wc > maxWords {
			flush()
		}
		buf = append(buf, p)
		words += wc
	}
	flush()

	for i := range chunks {
		chunks[i].Index = i + 1
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
