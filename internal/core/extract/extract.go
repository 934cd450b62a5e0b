// Package extract turns uploaded bytes into one normalized text blob.
//
// Each format is a variant behind core.DocumentExtractor, registered by
// extension. A variant that errors or panics produces no text; callers
// decide whether empty text is fatal.
package extract

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
)

// Options are the feature flags variants read at construction.
type Options struct {
	OCREnabled bool
}

type factory func(ext string, opts Options) core.DocumentExtractor

var variants = map[string]factory{
	"pdf":     func(string, Options) core.DocumentExtractor { return PDF{} },
	"docx":    func(string, Options) core.DocumentExtractor { return Word{Kind: WordDocx} },
	"doc":     func(string, Options) core.DocumentExtractor { return Word{Kind: WordDoc} },
	"odt":     func(string, Options) core.DocumentExtractor { return Word{Kind: WordODT} },
	"rtf":     func(string, Options) core.DocumentExtractor { return Word{Kind: WordRTF} },
	"text":    func(string, Options) core.DocumentExtractor { return PlainText{} },
	"html":    func(string, Options) core.DocumentExtractor { return HTML{} },
	"csv":     func(string, Options) core.DocumentExtractor { return Delimited{Comma: ','} },
	"tsv":     func(string, Options) core.DocumentExtractor { return Delimited{Comma: '\t'} },
	"xlsx":    func(string, Options) core.DocumentExtractor { return XLSX{} },
	"json":    func(string, Options) core.DocumentExtractor { return JSON{} },
	"image":   func(_ string, o Options) core.DocumentExtractor { return Image{OCR: o.OCREnabled} },
	"generic": func(ext string, _ Options) core.DocumentExtractor { return NewGeneric(ext) },
}

// Extractor dispatches on file extension.
type Extractor struct {
	registry map[string]core.DocumentExtractor
}

// New builds the registry from the format policy. An unknown variant name
// in the policy is a configuration error.
func New(policy *config.FormatPolicy, opts Options) (*Extractor, error) {
	e := &Extractor{registry: make(map[string]core.DocumentExtractor, len(policy.Formats))}
	for _, f := range policy.Formats {
		mk, ok := variants[f.Extractor]
		if !ok {
			return nil, fmt.Errorf("extract: unknown extractor %q for %s", f.Extractor, f.Extension)
		}
		e.registry[f.Extension] = mk(f.Extension, opts)
	}
	return e, nil
}

// Register adds or replaces the variant for ext.
func (e *Extractor) Register(ext string, v core.DocumentExtractor) {
	e.registry[strings.ToLower(ext)] = v
}

// Extract returns the normalized text of data, or "" when no variant
// produced any.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	v, ok := e.registry[ext]
	if !ok {
		log.Printf("extract: no extractor for %q", ext)
		return ""
	}
	if ctx.Err() != nil {
		return ""
	}
	return normalizeText(run(ctx, v, data, ext))
}

func run(ctx context.Context, v core.DocumentExtractor, data []byte, ext string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extract: %s extractor panicked: %v", ext, r)
			text = ""
		}
	}()

	text, err := v.ExtractText(ctx, data)
	if err != nil {
		log.Printf("extract: %s extraction failed: %v", ext, err)
		return ""
	}
	return text
}
