package extract

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"
)

type WordKind string

const (
	WordDocx WordKind = "docx"
	WordDoc  WordKind = "doc"
	WordODT  WordKind = "odt"
	WordRTF  WordKind = "rtf"
)

// Word extracts paragraph text in document order through docconv.
// .doc and .rtf need the wv and unrtf tools on PATH.
type Word struct {
	Kind WordKind
}

func (w Word) ExtractText(_ context.Context, data []byte) (string, error) {
	r := bytes.NewReader(data)

	var (
		body string
		err  error
	)
	switch w.Kind {
	case WordDocx:
		body, _, err = docconv.ConvertDocx(r)
	case WordDoc:
		body, _, err = docconv.ConvertDoc(r)
	case WordODT:
		body, _, err = docconv.ConvertODT(r)
	case WordRTF:
		body, _, err = docconv.ConvertRTF(r)
	default:
		return "", fmt.Errorf("unknown word format %q", w.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", w.Kind, err)
	}
	return body, nil
}
