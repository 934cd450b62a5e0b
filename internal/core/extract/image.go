package extract

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
)

// Image runs OCR through docconv when enabled. With OCR off it yields
// empty text, which is not an error. docconv needs the `ocr` build tag
// and tesseract for this to return anything.
type Image struct {
	OCR bool
}

func (i Image) ExtractText(_ context.Context, data []byte) (string, error) {
	if !i.OCR {
		return "", nil
	}
	mime := mimetype.Detect(data).String()
	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return res.Body, nil
}
