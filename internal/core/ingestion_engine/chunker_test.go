package ingestion_engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/models"
)

// wordsDoc builds n capitalised words in sentences of perSentence words. Every
// word is unique so overlap checks cannot pass by accident.
func wordsDoc(n, perSentence int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "W%d", i)
		if (i+1)%perSentence == 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func ownWords(c models.TextChunk) []string {
	return strings.Fields(c.Text)[c.OverlapTokens:]
}

func TestChunk_Empty(t *testing.T) {
	c := NewSemanticChunker(1000, 200, UAX29Splitter{}, WordCounter{})
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t "))
}

func TestChunk_Overlap3000Words(t *testing.T) {
	text := wordsDoc(3000, 10)
	c := NewSemanticChunker(1000, 200, UAX29Splitter{}, WordCounter{})

	chunks := c.Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 3)
	require.LessOrEqual(t, len(chunks), 4)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, models.ChunkSemantic, ch.Type)
		assert.LessOrEqual(t, ch.TokenCount, 1000)
		if i == 0 {
			assert.Zero(t, ch.OverlapTokens)
			continue
		}
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(ch.Text)
		require.Equal(t, 200, ch.OverlapTokens)
		assert.Equal(t, prev[len(prev)-200:], cur[:200])
	}
}

func TestChunk_ReconstructsSentenceSequence(t *testing.T) {
	text := wordsDoc(2345, 7)
	for _, splitter := range []SentenceSplitter{UAX29Splitter{}, NewRegexpSplitter()} {
		c := NewSemanticChunker(300, 50, splitter, WordCounter{})
		chunks := c.Chunk(text)
		require.NotEmpty(t, chunks)

		var rebuilt []string
		for i, ch := range chunks {
			assert.Equal(t, i, ch.Index)
			rebuilt = append(rebuilt, ownWords(ch)...)
		}
		assert.Equal(t, strings.Fields(text), rebuilt)
	}
}

func TestChunk_NoOverlap(t *testing.T) {
	c := NewSemanticChunker(20, 0, UAX29Splitter{}, WordCounter{})
	chunks := c.Chunk(wordsDoc(100, 5))
	require.Len(t, chunks, 5)
	for _, ch := range chunks {
		assert.Zero(t, ch.OverlapTokens)
		assert.Equal(t, 20, ch.TokenCount)
	}
}

func TestChunk_LongSentenceIsNotSplit(t *testing.T) {
	c := NewSemanticChunker(10, 2, UAX29Splitter{}, WordCounter{})
	text := wordsDoc(25, 25) + " Short tail here."

	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, 25, chunks[0].TokenCount)
	assert.Equal(t, 2, chunks[1].OverlapTokens)
	assert.Equal(t, []string{"Short", "tail", "here."}, ownWords(chunks[1]))
}

func TestChunk_FallbackWhenSplitterFails(t *testing.T) {
	c := NewSemanticChunker(10, 2, failingSplitter{}, WordCounter{})

	chunks := c.Chunk("  one two three. four five  ")
	require.Len(t, chunks, 1)
	assert.Equal(t, models.ChunkFallback, chunks[0].Type)
	assert.Equal(t, "one two three. four five", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 5, chunks[0].TokenCount)
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewSemanticChunker(100, 20, UAX29Splitter{}, WordCounter{})
	text := wordsDoc(1000, 9)
	assert.Equal(t, c.Chunk(text), c.Chunk(text))
}

func TestNewSemanticChunker_ClampsOverlap(t *testing.T) {
	c := NewSemanticChunker(10, 10, nil, nil)
	assert.Zero(t, c.overlapTokens)
	c = NewSemanticChunker(0, -1, nil, nil)
	assert.Equal(t, 1000, c.targetTokens)
	assert.Zero(t, c.overlapTokens)
}

func TestSplitters(t *testing.T) {
	text := "First one. Second one! Third one? trailing words"

	got, err := UAX29Splitter{}.Split(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "trailing words"}, got)

	got, err = NewRegexpSplitter().Split(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "trailing words"}, got)

	_, err = NewSentenceSplitter("spacy")
	assert.Error(t, err)
}

func TestTokenCounters(t *testing.T) {
	assert.Equal(t, 3, WordCounter{}.Count(" a  b\nc "))

	tc, err := NewTokenCounter("words", "")
	require.NoError(t, err)
	assert.IsType(t, WordCounter{}, tc)

	_, err = NewTokenCounter("bytes", "")
	assert.Error(t, err)
}
