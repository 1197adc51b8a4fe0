package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// MinTextLength is the shortest document text worth sending to the model
const MinTextLength = 100

var (
	ErrInsufficientText = errors.New("no usable text content found in document")
	ErrUnsupportedType  = errors.New("unsupported document type")
)

// Document types accepted for extraction
const (
	TypePDF  = "application/pdf"
	TypeHTML = "text/html"
	TypeText = "text/plain"
)

// DetectType sniffs the document type from its content, falling back to the
// file extension and the declared content type.
func DetectType(data []byte, fileName, declared string) string {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return TypePDF
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return TypePDF
	case ".html", ".htm":
		return TypeHTML
	case ".txt":
		return TypeText
	}

	ct := declared
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	switch {
	case strings.HasPrefix(ct, TypePDF):
		return TypePDF
	case strings.HasPrefix(ct, TypeHTML), strings.HasPrefix(ct, "application/xhtml"):
		return TypeHTML
	case strings.HasPrefix(ct, TypeText):
		return TypeText
	}
	return ""
}

// ExtractText returns the normalized text of a PDF, HTML or plain text
// document. Short results fail with ErrInsufficientText.
func ExtractText(data []byte, docType string) (string, error) {
	var (
		text string
		err  error
	)
	switch docType {
	case TypePDF:
		text, err = pdfText(data)
	case TypeHTML:
		text, err = htmlText(data)
	case TypeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedType)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, docType)
	}
	if err != nil {
		return "", err
	}

	text = normalizeWhitespace(text)
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", ErrInsufficientText
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer").Remove()

	// Block elements end a line so table cells and paragraphs stay apart
	doc.Find("p, div, br, li, tr, h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td, th").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text(), nil
	}
	return body.Text(), nil
}

// normalizeWhitespace collapses runs of spaces within lines and drops blank lines
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
