package ingestion_engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
	"github.com/pkoukk/tiktoken-go"
)

// SentenceSplitter finds sentence boundaries. An error means the model is
// unavailable and the chunker falls back to a single chunk.
type SentenceSplitter interface {
	Split(text string) ([]string, error)
}

// NewSentenceSplitter returns the splitter named in config: "uax29"
// (Unicode sentence boundaries) or "regexp" (terminal punctuation).
func NewSentenceSplitter(name string) (SentenceSplitter, error) {
	switch name {
	case "", "uax29":
		return UAX29Splitter{}, nil
	case "regexp":
		return NewRegexpSplitter(), nil
	default:
		return nil, fmt.Errorf("unknown sentence splitter %q", name)
	}
}

// UAX29Splitter segments text per Unicode Standard Annex #29.
type UAX29Splitter struct{}

func (UAX29Splitter) Split(text string) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("sentence segmentation: %v", r)
		}
	}()

	it := sentences.FromString(text)
	for it.Next() {
		if s := strings.TrimSpace(it.Value()); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// RegexpSplitter cuts after ., ! or ?. Trailing text without terminal
// punctuation becomes the last sentence.
type RegexpSplitter struct {
	re *regexp.Regexp
}

func NewRegexpSplitter() *RegexpSplitter {
	return &RegexpSplitter{re: regexp.MustCompile(`(?s)[^.!?]+[.!?]+`)}
}

func (s *RegexpSplitter) Split(text string) ([]string, error) {
	var out []string
	end := 0
	for _, loc := range s.re.FindAllStringIndex(text, -1) {
		if t := strings.TrimSpace(text[loc[0]:loc[1]]); t != "" {
			out = append(out, t)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out, nil
}

// TokenCounter reports the token count stored on each chunk. Boundary
// selection always uses whitespace words.
type TokenCounter interface {
	Count(text string) int
}

type WordCounter struct{}

func (WordCounter) Count(text string) int { return len(strings.Fields(text)) }

// TiktokenCounter counts BPE tokens for the configured encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTokenCounter(name, encoding string) (TokenCounter, error) {
	switch name {
	case "", "words":
		return WordCounter{}, nil
	case "tiktoken":
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("tiktoken %s: %w", encoding, err)
		}
		return &TiktokenCounter{enc: enc}, nil
	default:
		return nil, fmt.Errorf("unknown token counter %q", name)
	}
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
