// Package bundle encodes self-contained web experiences into compact
// scannable strings. The payload is JSON, raw-deflated, base64 encoded
// and prefixed, so a single code can carry a small interactive page.
package bundle

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

var ErrInvalidBundle = errors.New("invalid web bundle")

// WebBundle is a shareable page: a title, its full HTML, and the
// template family it was generated from.
type WebBundle struct {
	Title        string  `json:"title"`
	HTML         string  `json:"html"`
	TemplateType string  `json:"template_type"`
	CreatedAt    float64 `json:"created_at"`
}

// Encode serializes the bundle into its "GLYW:" string form. The
// string's UTF-8 bytes are what gets fragment-split when a bundle is
// too large for one code.
func (b *WebBundle) Encode() (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate init: %w", err)
	}
	if _, err := fw.Write(raw); err != nil {
		return "", fmt.Errorf("deflate bundle: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("deflate bundle: %w", err)
	}

	return protocol.BundlePrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBundle reverses Encode. Any malformed layer maps to
// ErrInvalidBundle.
func DecodeBundle(s string) (*WebBundle, error) {
	if !strings.HasPrefix(s, protocol.BundlePrefix) {
		return nil, ErrInvalidBundle
	}

	compressed, err := base64.StdEncoding.DecodeString(s[len(protocol.BundlePrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	fr := flate.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if err := fr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	var b WebBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return &b, nil
}
