package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var defaultFormats []byte

// FormatSpec is one allow-listed upload extension.
type FormatSpec struct {
	Extension     string   `yaml:"ext" validate:"required,startswith=."`
	Extractor     string   `yaml:"extractor" validate:"required"`
	MimeTypes     []string `yaml:"mime"`
	AllowPatterns []string `yaml:"allow_patterns"`
}

// FormatPolicy is the static configuration the validator and extractor share.
type FormatPolicy struct {
	Formats            []FormatSpec `yaml:"formats" validate:"required,min=1,dive"`
	SuspiciousPatterns []string     `yaml:"suspicious_patterns"`

	byExt map[string]FormatSpec
}

// LoadFormatPolicy reads path, or the embedded defaults when path is empty.
func LoadFormatPolicy(path string) (*FormatPolicy, error) {
	if path == "" {
		return ParseFormatPolicy(defaultFormats)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formats file: %w", err)
	}
	return ParseFormatPolicy(b)
}

func ParseFormatPolicy(b []byte) (*FormatPolicy, error) {
	var p FormatPolicy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse formats: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("formats: %w", err)
	}

	p.byExt = make(map[string]FormatSpec, len(p.Formats))
	for i, f := range p.Formats {
		f.Extension = strings.ToLower(f.Extension)
		p.Formats[i] = f
		if _, dup := p.byExt[f.Extension]; dup {
			return nil, fmt.Errorf("formats: duplicate extension %q", f.Extension)
		}
		p.byExt[f.Extension] = f
	}
	return &p, nil
}

// Lookup returns the spec for a lower-cased extension such as ".pdf".
func (p *FormatPolicy) Lookup(ext string) (FormatSpec, bool) {
	f, ok := p.byExt[strings.ToLower(ext)]
	return f, ok
}
