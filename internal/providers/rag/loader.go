package rag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/conv"
	"github.com/sandevgo/docportal/pkg/log"
)

const (
	PolicyReject   = "reject"
	PolicyTruncate = "truncate"
)

// Limits bound what LoadDocument accepts.
type Limits struct {
	MaxBytes int64
	Policy   string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadDocument reads an uploaded document into plain text.
// HTML is flattened; everything else must already be UTF-8 text.
func LoadDocument(ctx context.Context, name, contentType string, r io.Reader, limits Limits) (core.Document, error) {
	if limits.MaxBytes <= 0 {
		return core.Document{}, fmt.Errorf("%w: document size limit must be positive, got %d", core.ErrConfiguration, limits.MaxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(r, limits.MaxBytes+1))
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: read document: %w", core.ErrIngestion, err)
	}

	if int64(len(data)) > limits.MaxBytes {
		if limits.Policy != PolicyTruncate {
			return core.Document{}, fmt.Errorf("%w: %q exceeds %d bytes", core.ErrDocumentTooLarge, name, limits.MaxBytes)
		}
		data = truncateUTF8(data, int(limits.MaxBytes))
		log.FromCtx(ctx).Warn().
			Str("document", name).
			Int64("limit", limits.MaxBytes).
			Msg("Document truncated to size limit")
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return core.Document{}, fmt.Errorf("%w: %q is not valid UTF-8 text", core.ErrIngestion, name)
	}

	text := string(data)
	if isHTML(name, contentType) {
		text, err = conv.HTMLToText(text)
		if err != nil {
			return core.Document{}, fmt.Errorf("%w: convert html: %w", core.ErrIngestion, err)
		}
	}

	return core.Document{Name: name, Text: text}, nil
}

// LoadFile is LoadDocument for a local path.
func LoadFile(ctx context.Context, path string, limits Limits) (core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %w", core.ErrIngestion, err)
	}
	defer f.Close()

	return LoadDocument(ctx, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f, limits)
}

// truncateUTF8 cuts data to at most n bytes without splitting a rune.
func truncateUTF8(data []byte, n int) []byte {
	if n <= 0 {
		return data[:0]
	}
	if len(data) <= n {
		return data
	}
	data = data[:n]
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				return data[:i]
			}
			break
		}
	}
	return data
}

func isHTML(name, contentType string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "text/html" || mt == "application/xhtml+xml" {
			return true
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}
