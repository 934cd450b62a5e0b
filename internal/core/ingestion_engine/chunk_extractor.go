package ingestion_engine

import (
	"log"
	"strings"

	"github.com/markdave123-py/docingest/internal/models"
)

// SemanticChunker groups sentences into chunks of about TargetTokens words,
// seeding each chunk after the first with the last OverlapTokens words of
// its predecessor.
type SemanticChunker struct {
	targetTokens  int
	overlapTokens int
	splitter      SentenceSplitter
	counter       TokenCounter
}

func NewSemanticChunker(targetTokens, overlapTokens int, splitter SentenceSplitter, counter TokenCounter) *SemanticChunker {
	if targetTokens <= 0 {
		targetTokens = 1000
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		overlapTokens = 0
	}
	if splitter == nil {
		splitter = UAX29Splitter{}
	}
	if counter == nil {
		counter = WordCounter{}
	}
	return &SemanticChunker{
		targetTokens:  targetTokens,
		overlapTokens: overlapTokens,
		splitter:      splitter,
		counter:       counter,
	}
}

// Chunk splits text into ordered chunks. Blank text yields none. When
// sentence detection fails the whole text is one "fallback" chunk.
func (c *SemanticChunker) Chunk(text string) []models.TextChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sents, err := c.splitter.Split(text)
	if err != nil || len(sents) == 0 {
		if err != nil {
			log.Printf("chunker: sentence split failed, using fallback: %v", err)
		}
		return []models.TextChunk{{
			Index:      0,
			Text:       text,
			Type:       models.ChunkFallback,
			TokenCount: c.counter.Count(text),
		}}
	}

	var (
		out       []models.TextChunk
		seed      []string // overlap words carried from the previous chunk
		body      []string // this chunk's own sentences
		bodyWords int
	)

	// flush closes the buffer as a chunk and seeds the next one with its tail.
	flush := func() {
		if len(body) == 0 {
			return
		}
		ownText := strings.Join(body, " ")
		chunkText := ownText
		if len(seed) > 0 {
			chunkText = strings.Join(seed, " ") + " " + ownText
		}
		out = append(out, models.TextChunk{
			Index:         len(out),
			Text:          chunkText,
			Type:          models.ChunkSemantic,
			TokenCount:    c.counter.Count(chunkText),
			OverlapTokens: len(seed),
		})

		seed = nil
		if c.overlapTokens > 0 {
			words := strings.Fields(chunkText)
			seed = append(seed, words[max(len(words)-c.overlapTokens, 0):]...)
		}
		body = body[:0]
		bodyWords = 0
	}

	for _, s := range sents {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		// Close only when the buffer holds at least one sentence of its
		// own, so a chunk is never just the overlap.
		if len(body) > 0 && len(seed)+bodyWords+n > c.targetTokens {
			flush()
		}
		body = append(body, s)
		bodyWords += n
	}
	flush()

	return out
}
