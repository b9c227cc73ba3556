package extract

import "context"

// DocumentText is the raw text recovered from an invoice document, with
// enough provenance to explain a low score later.
type DocumentText struct {
	Text       string
	Format     string // constants.PDF | constants.IMAGE | constants.TXT
	Method     string // pdf-text, pdf-ocr, image-ocr, plain-text
	Pages      int
	Confidence float32
	Warnings   []string
}

// TextExtractor turns a document on disk into text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (DocumentText, error)
}

// FieldExtractor pulls invoice fields out of text.
type FieldExtractor interface {
	Extract(text string) Fields
	// VendorText is text with every field line removed.
	VendorText(text string) string
}

var (
	_ TextExtractor  = (*OCRAdapter)(nil)
	_ FieldExtractor = (*Extractor)(nil)
)
