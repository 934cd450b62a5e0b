package ingestion_engine

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/models"
)

// ValidationResult reports whether an upload may enter the pipeline.
// Kind and Reasons are set only when Safe is false.
type ValidationResult struct {
	Safe      bool
	Kind      models.ErrorKind
	Reasons   []string
	MimeType  string
	Extension string
}

// ContentValidator rejects unsafe, oversized or mismatched uploads before
// any processing. It has no side effects.
//
// The suspicious-content check is a case-insensitive substring match over
// the raw bytes. It is a coarse heuristic, not a virus scanner, and it will
// flag inert mentions such as a paper quoting "eval(".
type ContentValidator struct {
	maxBytes int64
	policy   *config.FormatPolicy
	patterns [][]byte
}

func NewContentValidator(maxBytes int64, policy *config.FormatPolicy) *ContentValidator {
	v := &ContentValidator{maxBytes: maxBytes, policy: policy}
	for _, p := range policy.SuspiciousPatterns {
		if p = strings.TrimSpace(p); p != "" {
			v.patterns = append(v.patterns, bytes.ToLower([]byte(p)))
		}
	}
	return v
}

// Validate runs the checks in order and stops at the first failure.
func (v *ContentValidator) Validate(data []byte, filename string) ValidationResult {
	ext := strings.ToLower(filepath.Ext(filename))
	res := ValidationResult{Extension: ext}

	if int64(len(data)) > v.maxBytes {
		return res.reject(models.KindFileTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", len(data), v.maxBytes))
	}

	spec, ok := v.policy.Lookup(ext)
	if !ok {
		return res.reject(models.KindUnsupportedFormat, fmt.Sprintf("extension %q is not supported", ext))
	}

	// Empty content has nothing to sniff; extraction reports it instead.
	if len(data) > 0 {
		detected := mimetype.Detect(data)
		res.MimeType = detected.String()
		if len(spec.MimeTypes) > 0 && !mimeMatches(detected, spec.MimeTypes) {
			return res.reject(models.KindMimeMismatch,
				fmt.Sprintf("content looks like %s, not %s", detected.String(), ext))
		}
	}

	if hit := v.suspicious(data, spec.AllowPatterns); hit != "" {
		return res.reject(models.KindSuspiciousContent, fmt.Sprintf("content contains %q", hit))
	}

	res.Safe = true
	return res
}

func (r ValidationResult) reject(kind models.ErrorKind, reason string) ValidationResult {
	r.Safe = false
	r.Kind = kind
	r.Reasons = append(r.Reasons, reason)
	return r
}

// mimeMatches walks the detected type and its parents, so a .docx sniffed
// as application/zip still matches when the policy lists zip.
func mimeMatches(detected *mimetype.MIME, expected []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, e := range expected {
			if m.Is(e) {
				return true
			}
		}
	}
	return false
}

func (v *ContentValidator) suspicious(data []byte, allow []string) string {
	if len(v.patterns) == 0 || len(data) == 0 {
		return ""
	}
	lower := bytes.ToLower(data)
	for _, p := range v.patterns {
		if allowed(p, allow) {
			continue
		}
		if bytes.Contains(lower, p) {
			return string(p)
		}
	}
	return ""
}

func allowed(pattern []byte, allow []string) bool {
	for _, a := range allow {
		if strings.EqualFold(string(pattern), a) {
			return true
		}
	}
	return false
}
