package pdftext

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Decoder produces the plain text of a PDF file. Any failure is surfaced as
// a single opaque error; the caller decides how to classify it.
type Decoder interface {
	Text(path string) (string, error)
}

// Reader decodes PDFs with ledongthuc/pdf.
type Reader struct {
	maxFileSize int64
}

// NewReader creates a Reader that refuses files larger than maxFileSize
// bytes. A zero or negative limit disables the check.
func NewReader(maxFileSize int64) *Reader {
	return &Reader{maxFileSize: maxFileSize}
}

// Text extracts the text of every page, newline-separated. Pages that fail
// to decode individually are skipped rather than failing the document.
func (r *Reader) Text(path string) (string, error) {
	if r.maxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("cannot access file: %w", err)
		}
		if info.Size() > r.maxFileSize {
			return "", fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), r.maxFileSize)
		}
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
