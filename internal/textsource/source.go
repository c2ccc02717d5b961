// Package textsource turns statement PDFs into plain text for extraction.
// The primary path uses ledongthuc/pdf; pages it cannot decode fall back to
// a pdfcpu content stream scan.
package textsource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxTextSize caps the text kept per document
const DefaultMaxTextSize = 4 * 1024 * 1024

// Method names the decoder that produced a document's text
type Method string

const (
	MethodPlainText     Method = "plain_text"
	MethodContentStream Method = "content_stream"
)

// Document is the text of one PDF
type Document struct {
	Path   string `json:"path"`
	Pages  int    `json:"pages"`
	Size   int64  `json:"size"`
	Text   string `json:"text"`
	Method Method `json:"method"`
}

// Source reads statement PDFs within size constraints
type Source struct {
	maxFileSize int64
	maxTextSize int
}

// New creates a text source with the given file size limit
func New(maxFileSize int64) *Source {
	return &Source{
		maxFileSize: maxFileSize,
		maxTextSize: DefaultMaxTextSize,
	}
}

// ValidateFile checks that path names a non-empty PDF within the size limit
func (s *Source) ValidateFile(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), s.maxFileSize)
	}
	return info, nil
}

// ReadFile validates and reads one PDF from disk
func (s *Source) ReadFile(path string) (*Document, error) {
	if _, err := s.ValidateFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.ReadBytes(path, data)
}

// ReadBytes extracts text from an in-memory PDF. name is recorded as the
// document path.
func (s *Source) ReadBytes(name string, data []byte) (*Document, error) {
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(data), s.maxFileSize)
	}

	doc := &Document{Path: name, Size: int64(len(data))}

	text, pages, err := plainText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		doc.Text, doc.Pages, doc.Method = s.clip(text), pages, MethodPlainText
		return doc, nil
	}

	text, pages, fallbackErr := contentStreamText(data)
	if fallbackErr != nil {
		if err != nil {
			return nil, fmt.Errorf("failed to open PDF: %w", err)
		}
		return nil, fmt.Errorf("failed to open PDF: %w", fallbackErr)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content could be extracted from %s", name)
	}
	doc.Text, doc.Pages, doc.Method = s.clip(text), pages, MethodContentStream
	return doc, nil
}

func (s *Source) clip(text string) string {
	if len(text) <= s.maxTextSize {
		return text
	}
	return text[:s.maxTextSize]
}

func plainText(data []byte) (text string, pages int, err error) {
	defer func() {
		// ledongthuc panics on some malformed streams
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf decode panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}

	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		parts = append(parts, content)
	}
	return tidy(strings.Join(parts, "\n")), pages, nil
}

func contentStreamText(data []byte) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", 0, err
	}

	parts := make([]string, 0, ctx.PageCount)
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		parts = append(parts, scanContent(content))
	}
	return tidy(strings.Join(parts, "\n")), ctx.PageCount, nil
}

// tidy trims every line and drops blank ones so labels and values sit on
// adjacent lines regardless of decoder
func tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
