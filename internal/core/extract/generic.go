package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
)

// Generic is best-effort extraction for allow-listed formats with no
// dedicated variant.
type Generic struct {
	MimeType string
}

func NewGeneric(ext string) Generic {
	return Generic{MimeType: docconv.MimeTypeByExtension("file" + ext)}
}

func (g Generic) ExtractText(_ context.Context, data []byte) (string, error) {
	mime := g.MimeType
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}
	// docconv matches bare types only
	mime, _, _ = strings.Cut(mime, ";")

	switch mime {
	case "text/xml", "application/xml":
		// docconv.ConvertXML shells out to tidy first
		body, err := docconv.XMLToText(bytes.NewReader(data), nil, nil, false)
		if err != nil {
			return "", fmt.Errorf("xml: %w", err)
		}
		return body, nil
	}

	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", mime, err)
	}
	return res.Body, nil
}
