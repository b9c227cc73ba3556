package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-processor/internal/ocr"
)

// OCRAdapter reads documents through the poppler/tesseract extractor.
type OCRAdapter struct {
	ocr    *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{ocr: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (DocumentText, error) {
	r, err := a.ocr.Extract(ctx, path)
	out := DocumentText{
		Text:       r.Text,
		Format:     r.SourceType,
		Method:     r.Method,
		Pages:      r.Pages,
		Confidence: r.Confidence,
		Warnings:   r.Warnings,
	}
	if err != nil {
		a.logger.Warn("extract.text.failed", "path", path, "error", err)
		return out, err
	}
	a.logger.Debug("extract.text.ok",
		"path", path,
		"method", r.Method,
		"chars", len(r.Text),
		"elapsed_ms", r.Duration.Milliseconds(),
	)
	return out, nil
}
