package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF text extraction using ledongthuc/pdf (MIT license)
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// sanitizePDF fixes common PDF issues like trailing garbage data
// Many PDFs produced by school software have extra data appended after %%EOF
// This function truncates the content at the last valid %%EOF marker
func sanitizePDF(content []byte) []byte {
	if len(content) == 0 {
		return content
	}

	// Check if content starts with PDF header
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content // Not a PDF, return as-is
	}

	// Find the last occurrence of %%EOF (valid PDF end marker)
	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)

	if lastEOF == -1 {
		// No %%EOF found - PDF is likely truncated, return as-is and let parser handle it
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)

	// Allow for trailing newlines after %%EOF (valid per PDF spec)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if pdfEnd < len(content) {
		extraBytes := len(content) - pdfEnd
		if extraBytes > 10 { // More than just whitespace
			log.Printf("PDF Sanitizer: Removing %d bytes of trailing garbage after %%EOF", extraBytes)
			return content[:pdfEnd]
		}
	}

	return content
}

// ExtractFirstPage extracts text from the first page of a PDF. Bulletins are
// single-page documents; anything past page one is ignored.
func (p *PDFExtractor) ExtractFirstPage(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}

	content = sanitizePDF(content)
	reader := bytes.NewReader(content)

	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	page := pdfReader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("first page content unavailable")
	}

	text, err := extractPageText(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract page 1: %w", err)
	}

	extracted := strings.TrimSpace(text)
	if extracted == "" {
		return "", fmt.Errorf("no text extracted from PDF - document may be scanned/image-based and requires OCR")
	}

	log.Printf("PDF Extractor: Extracted %d characters from first page (%d pages total)", len(extracted), numPages)

	return extracted, nil
}

// extractPageText extracts one page's text, row by row for better structure
// preservation, with a plain text fallback.
func extractPageText(page pdf.Page) (string, error) {
	var textBuilder strings.Builder

	rows, err := page.GetTextByRow()
	if err != nil {
		// Fallback to plain text if row extraction fails
		text, plainErr := page.GetPlainText(nil)
		if plainErr != nil {
			return "", plainErr
		}
		return text, nil
	}

	for _, row := range rows {
		var rowText strings.Builder
		for _, word := range row.Content {
			rowText.WriteString(word.S)
		}
		line := strings.TrimSpace(rowText.String())
		if line != "" {
			textBuilder.WriteString(line)
			textBuilder.WriteString("\n")
		}
	}

	return textBuilder.String(), nil
}
